package protocol

import (
	"math"
	"testing"
)

func TestNMEAChecksumRoundTrip(t *testing.T) {
	bodies := []string{
		"PUBX,00,081350.00,4717.113210,N,00833.915187,E,546.589,G3,2.1,2.0,0.007,77.52,0.007,,0.92,1.19,0.77,9,0,0",
		"PUBX,04,073731.00,091202,113851.00,1196,15D,1930035,-2660.664,43",
		"GPGGA,092725.00,4717.11399,N,00833.91590,E,1,08,1.01,499.6,M,48.0,M,,",
		"PUBX,40,GLL,0,0,0,0,0,0",
	}

	for _, body := range bodies {
		frame := SealNMEA(body)
		if !VerifyNMEA([]byte(frame)) {
			t.Errorf("sealed sentence failed verification: %q", frame)
		}
	}
}

func TestNMEAChecksumDetectsCorruption(t *testing.T) {
	frame := []byte(SealNMEA("PUBX,00,081350.00,4717.113210,N,00833.915187,E,546.589,G3"))

	// Flip one bit in every body and checksum position; each must fail.
	for i := 1; i < len(frame)-2; i++ {
		if frame[i] == NMEAChecksumMark {
			continue
		}
		corrupted := make([]byte, len(frame))
		copy(corrupted, frame)
		corrupted[i] ^= 0x01
		if VerifyNMEA(corrupted) {
			t.Errorf("corruption at byte %d not detected", i)
		}
	}
}

func TestNMEAChecksumKnownValue(t *testing.T) {
	// XOR of "GPGLL,4916.45,N,12311.12,W,225444,A" is 0x1D.
	cs := NMEAChecksum([]byte("GPGLL,4916.45,N,12311.12,W,225444,A"))
	if cs[0] != '1' || cs[1] != 'D' {
		t.Errorf("expected checksum 1D, got %c%c", cs[0], cs[1])
	}
}

func TestNMEAFields(t *testing.T) {
	frame := []byte(SealNMEA("PUBX,04,073731.00,091202"))
	fields, err := NMEAFields(frame)
	if err != nil {
		t.Fatalf("NMEAFields failed: %v", err)
	}

	expected := []string{"PUBX", "04", "073731.00", "091202"}
	if len(fields) != len(expected) {
		t.Fatalf("expected %d fields, got %d: %v", len(expected), len(fields), fields)
	}
	for i, f := range expected {
		if fields[i] != f {
			t.Errorf("field %d: expected %q, got %q", i, f, fields[i])
		}
	}
}

func TestNMEAFieldsRejectsGarbage(t *testing.T) {
	if _, err := NMEAFields([]byte("$PUBX,00,no,star")); err == nil {
		t.Error("expected error for frame without checksum mark")
	}
}

func TestParseCoordinate(t *testing.T) {
	testCases := []struct {
		raw      string
		hemi     byte
		expected float64
	}{
		{"4807.038", 'N', 48.0 + 7.038/60.0},
		{"4807.038", 'S', -(48.0 + 7.038/60.0)},
		{"00833.915187", 'E', 8.0 + 33.915187/60.0},
		{"00833.915187", 'W', -(8.0 + 33.915187/60.0)},
		{"0000.000", 'N', 0.0},
		{"9000.00", 'S', -90.0},
	}

	for _, tc := range testCases {
		got, err := ParseCoordinate(tc.raw, tc.hemi)
		if err != nil {
			t.Errorf("ParseCoordinate(%q, %c) failed: %v", tc.raw, tc.hemi, err)
			continue
		}
		if math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("ParseCoordinate(%q, %c): expected %v, got %v", tc.raw, tc.hemi, tc.expected, got)
		}
	}
}

func TestParseCoordinateRejectsMalformed(t *testing.T) {
	bad := []struct {
		raw  string
		hemi byte
	}{
		{"", 'N'},
		{"12", 'N'},
		{"48o7.038", 'N'},
		{"4807.03.8", 'N'},
		{"4807.038", 'X'},
	}

	for _, tc := range bad {
		if _, err := ParseCoordinate(tc.raw, tc.hemi); err == nil {
			t.Errorf("ParseCoordinate(%q, %c): expected error", tc.raw, tc.hemi)
		}
	}
}
