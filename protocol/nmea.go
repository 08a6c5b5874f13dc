// Package protocol implements the two wire codecs spoken by u-blox M8
// receivers: the ASCII NMEA/PUBX sentence format and the binary UBX
// packet format. The codecs are transport-agnostic; framing over a live
// byte stream lives in the m8q driver.
package protocol

import (
	"errors"
	"strings"
)

// NMEA sentence delimiters.
const (
	NMEAStart        = '$'
	NMEAChecksumMark = '*'
	NMEACR           = '\r'
	NMEALF           = '\n'

	// NMEATrailerLen is the byte count following the checksum mark:
	// two hex digits plus CR LF.
	NMEATrailerLen = 4

	// NMEASentenceMax bounds a single sentence including trailer.
	// PUBX,00 runs past the 82-byte standard NMEA cap.
	NMEASentenceMax = 128
)

// PUBX message identifiers as they appear in the second sentence field.
const (
	PUBXPosition = "00"
	PUBXSVStatus = "03"
	PUBXTime     = "04"
	PUBXRate     = "40"
	PUBXConfig   = "41"
)

// Field counts for the outgoing PUBX configuration forms.
const (
	PUBXRateFields   = 7
	PUBXConfigFields = 5
)

var (
	// ErrNotSentence reports input that is not a framed NMEA sentence.
	ErrNotSentence = errors.New("not an NMEA sentence")

	// ErrBadCoordinate reports a coordinate string that cannot be
	// converted to decimal degrees.
	ErrBadCoordinate = errors.New("malformed NMEA coordinate")
)

// NMEAChecksum XORs the sentence body and renders the result as two
// uppercase hex ASCII characters. The body is the byte run strictly
// between '$' and '*'.
func NMEAChecksum(body []byte) [2]byte {
	var cs byte
	for _, b := range body {
		cs ^= b
	}
	return [2]byte{hexUpper(cs >> 4), hexUpper(cs & 0x0F)}
}

// SealNMEA wraps a sentence body into a complete frame:
// '$' + body + '*' + checksum + CRLF.
func SealNMEA(body string) string {
	cs := NMEAChecksum([]byte(body))
	var sb strings.Builder
	sb.Grow(len(body) + 6)
	sb.WriteByte(NMEAStart)
	sb.WriteString(body)
	sb.WriteByte(NMEAChecksumMark)
	sb.WriteByte(cs[0])
	sb.WriteByte(cs[1])
	sb.WriteByte(NMEACR)
	sb.WriteByte(NMEALF)
	return sb.String()
}

// VerifyNMEA checks the framing and checksum of a complete sentence.
// The trailing CR LF may be present or already stripped.
func VerifyNMEA(frame []byte) bool {
	if len(frame) < 4 || frame[0] != NMEAStart {
		return false
	}
	mark := -1
	for i := len(frame) - 1; i > 0; i-- {
		if frame[i] == NMEAChecksumMark {
			mark = i
			break
		}
	}
	if mark < 0 || mark+2 >= len(frame) {
		return false
	}
	cs := NMEAChecksum(frame[1:mark])
	return frame[mark+1] == cs[0] && frame[mark+2] == cs[1]
}

// NMEABody extracts the byte run between '$' and '*'.
func NMEABody(frame []byte) ([]byte, error) {
	if len(frame) == 0 || frame[0] != NMEAStart {
		return nil, ErrNotSentence
	}
	for i := 1; i < len(frame); i++ {
		if frame[i] == NMEAChecksumMark {
			return frame[1:i], nil
		}
	}
	return nil, ErrNotSentence
}

// NMEAFields splits a sentence into its comma-separated fields. The
// frame may be a full '$...*CS' frame or a bare body; the checksum
// trailer is not included in the last field.
func NMEAFields(frame []byte) ([]string, error) {
	body := frame
	if len(frame) > 0 && frame[0] == NMEAStart {
		b, err := NMEABody(frame)
		if err != nil {
			return nil, err
		}
		body = b
	}
	return strings.Split(string(body), ","), nil
}

// ParseCoordinate converts an NMEA "ddmm.mmmm"-style coordinate plus a
// hemisphere indicator into signed decimal degrees. Latitude uses two
// integer-degree digits, longitude three; the split is made at the
// digit boundary so both work here. 'S' and 'W' negate the result.
func ParseCoordinate(raw string, hemi byte) (float64, error) {
	dot := strings.IndexByte(raw, '.')
	if dot < 0 {
		dot = len(raw)
	}
	// Minutes occupy the two digits left of the decimal point.
	if dot < 3 {
		return 0, ErrBadCoordinate
	}
	degDigits := raw[:dot-2]

	deg, ok := parseDigits(degDigits)
	if !ok {
		return 0, ErrBadCoordinate
	}
	min, ok := parseMinutes(raw[dot-2:])
	if !ok {
		return 0, ErrBadCoordinate
	}

	val := float64(deg) + min/60.0
	switch hemi {
	case 'N', 'E':
	case 'S', 'W':
		val = -val
	default:
		return 0, ErrBadCoordinate
	}
	return val, nil
}

// parseDigits converts a run of ASCII digits to an integer.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// parseMinutes converts "mm.mmmm" to a float. Field widths vary by
// receiver firmware, so the fraction length is not fixed.
func parseMinutes(s string) (float64, bool) {
	whole := 0.0
	frac := 0.0
	scale := 1.0
	seenDot := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if seenDot {
				return 0, false
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, false
		}
		if seenDot {
			scale /= 10
			frac += float64(c-'0') * scale
		} else {
			whole = whole*10 + float64(c-'0')
		}
	}
	return whole + frac, true
}

// hexUpper maps a nibble to its uppercase hex ASCII character.
func hexUpper(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'A' + n - 10
}
