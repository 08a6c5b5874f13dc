package protocol

import (
	"bytes"
	"testing"
)

func TestUBXChecksumKnownVector(t *testing.T) {
	// CFG-RATE poll: class=0x06 id=0x09 len=0x0000.
	// Running sum: CK_A = 06,0F,0F,0F  CK_B = 06,15,24,33.
	ckA, ckB := UBXChecksum([]byte{0x06, 0x09, 0x00, 0x00})
	if ckA != 0x0F || ckB != 0x33 {
		t.Errorf("expected checksum (0x0F, 0x33), got (0x%02X, 0x%02X)", ckA, ckB)
	}
}

func TestEncodeUBX(t *testing.T) {
	packet := EncodeUBX(0x06, 0x09, nil)
	expected := []byte{0xB5, 0x62, 0x06, 0x09, 0x00, 0x00, 0x0F, 0x33}
	if !bytes.Equal(packet, expected) {
		t.Errorf("expected % X, got % X", expected, packet)
	}

	if !VerifyUBX(packet) {
		t.Error("encoded packet failed verification")
	}
}

func TestEncodeUBXWithPayload(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	packet := EncodeUBX(0x06, 0x08, payload)

	if length, ok := UBXLength(packet); !ok || length != 4 {
		t.Errorf("expected embedded length 4, got %d (ok=%v)", length, ok)
	}
	if !VerifyUBX(packet) {
		t.Error("encoded packet failed verification")
	}

	class, id, ok := UBXClassID(packet)
	if !ok || class != 0x06 || id != 0x08 {
		t.Errorf("expected class/id 06/08, got %02X/%02X (ok=%v)", class, id, ok)
	}
}

func TestVerifyUBXDetectsCorruption(t *testing.T) {
	packet := EncodeUBX(0x06, 0x3E, []byte{0xAA, 0xBB, 0xCC})

	for i := range packet {
		corrupted := make([]byte, len(packet))
		copy(corrupted, packet)
		corrupted[i] ^= 0x01
		if VerifyUBX(corrupted) {
			t.Errorf("corruption at byte %d not detected", i)
		}
	}
}

func TestVerifyUBXLengthMismatch(t *testing.T) {
	packet := EncodeUBX(0x06, 0x09, nil)

	// Truncated and padded packets must both fail.
	if VerifyUBX(packet[:len(packet)-1]) {
		t.Error("truncated packet accepted")
	}
	if VerifyUBX(append(append([]byte{}, packet...), 0x00)) {
		t.Error("padded packet accepted")
	}
}

func TestConvertConfigText(t *testing.T) {
	got, err := ConvertConfigText("B5,62,06,09,00,00")
	if err != nil {
		t.Fatalf("ConvertConfigText failed: %v", err)
	}
	expected := []byte{0xB5, 0x62, 0x06, 0x09, 0x00, 0x00}
	if !bytes.Equal(got, expected) {
		t.Errorf("expected % X, got % X", expected, got)
	}
}

func TestConvertConfigTextPoll(t *testing.T) {
	got, err := ConvertConfigText("B5,62,06,09,poll")
	if err != nil {
		t.Fatalf("ConvertConfigText failed: %v", err)
	}
	// The poll token expands to the zero length field.
	expected := []byte{0xB5, 0x62, 0x06, 0x09, 0x00, 0x00}
	if !bytes.Equal(got, expected) {
		t.Errorf("expected % X, got % X", expected, got)
	}
}

func TestConvertConfigTextRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"B5,62,0G",        // invalid hex digit
		"B5,62,0",         // odd digit count
		"B5,62,069",       // three digits in one group
		"B5,62,,09",       // empty group
		"B5,62,06,09,Poll", // poll token is case-sensitive
	}

	for _, text := range bad {
		if _, err := ConvertConfigText(text); err != ErrConvFail {
			t.Errorf("ConvertConfigText(%q): expected ErrConvFail, got %v", text, err)
		}
	}
}

func TestSealUBX(t *testing.T) {
	frame := []byte{0xB5, 0x62, 0x06, 0x09, 0x00, 0x00}
	sealed, err := SealUBX(frame)
	if err != nil {
		t.Fatalf("SealUBX failed: %v", err)
	}
	if !VerifyUBX(sealed) {
		t.Error("sealed packet failed verification")
	}

	if _, err := SealUBX([]byte{0xB5, 0x62}); err == nil {
		t.Error("expected error for short frame")
	}
}
