package protocol

import (
	"encoding/binary"
	"errors"
	"strings"
)

// UBX framing constants.
const (
	UBXSync1 = 0xB5
	UBXSync2 = 0x62

	// UBXHeaderLen covers class, id and the little-endian length field.
	UBXHeaderLen = 4

	// UBXFrameMin is the smallest complete packet: two sync bytes,
	// header and two checksum bytes.
	UBXFrameMin = 2 + UBXHeaderLen + 2
)

// UBX message classes and ids used by the driver.
const (
	UBXClassACK = 0x05
	UBXClassCFG = 0x06

	UBXIDNak = 0x00
	UBXIDAck = 0x01
)

// PollToken is the literal text accepted in place of a payload when a
// configuration message should be sent as a zero-length poll request.
const PollToken = "poll"

var (
	// ErrConvFail reports malformed user-entered UBX config text.
	ErrConvFail = errors.New("ubx message conversion failed")

	// ErrShortPacket reports a UBX buffer too small to frame.
	ErrShortPacket = errors.New("short ubx packet")
)

// UBXChecksum runs the two-byte Fletcher-style sum over the given
// bytes. Callers pass class through payload; sync bytes are excluded.
func UBXChecksum(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// EncodeUBX assembles a complete packet from class, id and payload.
func EncodeUBX(class, id byte, payload []byte) []byte {
	buf := make([]byte, 0, UBXFrameMin+len(payload))
	buf = append(buf, UBXSync1, UBXSync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := UBXChecksum(buf[2:])
	return append(buf, ckA, ckB)
}

// SealUBX appends the checksum to a packet that carries sync bytes,
// header and payload but no trailer yet.
func SealUBX(frame []byte) ([]byte, error) {
	if len(frame) < 2+UBXHeaderLen || frame[0] != UBXSync1 || frame[1] != UBXSync2 {
		return nil, ErrShortPacket
	}
	ckA, ckB := UBXChecksum(frame[2:])
	return append(frame, ckA, ckB), nil
}

// VerifyUBX checks sync bytes, the embedded length and the checksum of
// a complete packet.
func VerifyUBX(packet []byte) bool {
	if len(packet) < UBXFrameMin || packet[0] != UBXSync1 || packet[1] != UBXSync2 {
		return false
	}
	length := int(binary.LittleEndian.Uint16(packet[4:6]))
	if len(packet) != UBXFrameMin+length {
		return false
	}
	ckA, ckB := UBXChecksum(packet[2 : len(packet)-2])
	return packet[len(packet)-2] == ckA && packet[len(packet)-1] == ckB
}

// UBXClassID returns the class and id bytes of a packet.
func UBXClassID(packet []byte) (class, id byte, ok bool) {
	if len(packet) < 4 || packet[0] != UBXSync1 || packet[1] != UBXSync2 {
		return 0, 0, false
	}
	return packet[2], packet[3], true
}

// UBXLength returns the payload length embedded in the header.
func UBXLength(packet []byte) (uint16, bool) {
	if len(packet) < 2+UBXHeaderLen {
		return 0, false
	}
	return binary.LittleEndian.Uint16(packet[4:6]), true
}

// ConvertConfigText packs user-entered UBX config text into binary.
// Input is comma-separated two-hex-digit byte groups, e.g.
// "B5,62,06,09,00,00". The literal "poll" token (case-sensitive) may
// stand in for the length and payload to request a zero-length poll.
// Odd digit counts, empty groups and non-hex characters all fail with
// ErrConvFail; no partial output is returned.
func ConvertConfigText(text string) ([]byte, error) {
	if text == "" {
		return nil, ErrConvFail
	}
	groups := strings.Split(text, ",")
	buf := make([]byte, 0, len(groups)+2)
	for _, g := range groups {
		if g == PollToken {
			// Zero-length poll: the length field is all that remains.
			buf = append(buf, 0x00, 0x00)
			continue
		}
		if len(g) != 2 {
			return nil, ErrConvFail
		}
		hi, ok1 := hexNibble(g[0])
		lo, ok2 := hexNibble(g[1])
		if !ok1 || !ok2 {
			return nil, ErrConvFail
		}
		buf = append(buf, hi<<4|lo)
	}
	return buf, nil
}

// hexNibble converts one uppercase hex ASCII character.
func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
