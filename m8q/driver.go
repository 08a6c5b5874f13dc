// Package m8q drives the u-blox M8Q GNSS receiver. The driver frames,
// validates and parses the receiver's NMEA/PUBX and UBX traffic over a
// narrow byte-stream transport, and the companion Controller sequences
// it from a cooperative scheduling loop.
package m8q

import (
	"errors"
	"fmt"
	"strings"

	"navcore/core"
	"navcore/protocol"
)

// NoDataByte is what the receiver's data stream register yields when no
// message bytes are pending.
const NoDataByte = 0xFF

// readBufMax bounds a single framed message: UBX payloads on the M8Q
// stay well under this, NMEA sentences are capped far lower.
const readBufMax = 512

// ackPollLimit bounds how many messages are drained while waiting for a
// CFG acknowledgement before the config is declared rejected.
const ackPollLimit = 25

// Driver status errors. Transport failures are wrapped in ErrReadFault
// or ErrWriteFault; everything else is a local validation result.
var (
	ErrBadHandle     = errors.New("invalid device handle")
	ErrNoData        = errors.New("no data pending")
	ErrUnknownData   = errors.New("unrecognized data at stream head")
	ErrBadChecksum   = errors.New("checksum mismatch")
	ErrOverflow      = errors.New("message exceeds read buffer")
	ErrInvalidConfig = errors.New("invalid config message")
	ErrReadFault     = errors.New("bus read fault")
	ErrWriteFault    = errors.New("bus write fault")
)

// Bus is the byte-stream transport to the receiver. Concrete bindings
// exist for the DDC (I2C) port and for a host serial port; the driver
// itself never touches bus registers.
type Bus interface {
	// Ready reports whether message bytes are pending. Non-blocking.
	Ready() bool
	// ReadByte returns the next stream byte, or NoDataByte when the
	// stream is idle.
	ReadByte() (byte, error)
	// Read fills p from the stream.
	Read(p []byte) error
	// Write sends p to the receiver.
	Write(p []byte) error
}

// Token classifies the first pending stream byte.
type Token uint8

const (
	TokenNone Token = iota
	TokenNMEA
	TokenUBX
	TokenUnknown
)

// Navigation status codes reported in PUBX,00 field 8.
const (
	NavNoFix          = "NF"
	NavDeadReckoning  = "DR"
	NavStandalone2D   = "G2"
	NavStandalone3D   = "G3"
	NavDifferential2D = "D2"
	NavDifferential3D = "D3"
	NavCombined       = "RK"
	NavTimeOnly       = "TT"
)

// Fix holds the most recently parsed position and time solution.
// Fields update only when a checksum-valid PUBX POSITION or TIME
// message arrives; stale values persist otherwise.
type Fix struct {
	Latitude  float64 // signed decimal degrees
	LatRaw    string  // device ddmm.mmmm string
	NS        byte
	Longitude float64
	LonRaw    string
	EW        byte
	NavStatus string
	Time      string // UTC hhmmss.ss
	Date      string // UTC ddmmyy
}

// fixRecord is the per-instance device record held in the registry.
type fixRecord struct {
	fix      Fix
	svCount  int
	ackCount uint32
	nakCount uint32
}

// records chains one fixRecord per attached receiver, keyed by device
// number.
var records core.Registry[fixRecord]

// Device is a driver handle bound to one physical receiver.
type Device struct {
	num uint8
	bus Bus
	rec *fixRecord

	// peeked holds a stream byte pulled by PeekToken until the next
	// ReadMessage consumes it.
	peeked  byte
	hasPeek bool
}

// NewDevice binds a driver to the receiver behind bus. The device
// number identifies the instance record; calling NewDevice twice with
// the same number yields handles sharing one record.
func NewDevice(num uint8, bus Bus) (*Device, error) {
	if bus == nil {
		return nil, ErrBadHandle
	}
	rec, err := records.CreateOrFetch(num)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadHandle, err)
	}
	return &Device{num: num, bus: bus, rec: rec}, nil
}

// Ready reports whether the transport has message bytes pending.
func (d *Device) Ready() bool {
	return d.hasPeek || d.bus.Ready()
}

// PeekToken classifies the first pending stream byte without losing
// it: a message-start byte is held back and handed to the next
// ReadMessage, so peeking then reading sees the whole message.
func (d *Device) PeekToken() (Token, error) {
	if d.hasPeek {
		return classify(d.peeked), nil
	}
	b, err := d.bus.ReadByte()
	if err != nil {
		return TokenNone, readFault(err)
	}
	if b != NoDataByte {
		d.peeked = b
		d.hasPeek = true
	}
	return classify(b), nil
}

// nextByte consumes the held-back peek byte if present, otherwise
// reads from the bus.
func (d *Device) nextByte() (byte, error) {
	if d.hasPeek {
		d.hasPeek = false
		return d.peeked, nil
	}
	return d.bus.ReadByte()
}

func classify(b byte) Token {
	switch b {
	case protocol.NMEAStart:
		return TokenNMEA
	case protocol.UBXSync1:
		return TokenUBX
	case NoDataByte:
		return TokenNone
	}
	return TokenUnknown
}

// ReadMessage pulls one complete message from the stream into buf and
// returns its length. Checksum-valid PUBX position/time messages update
// the fix record and UBX ACK/NAK messages update the acknowledgement
// counters as a side effect. Returns ErrNoData when the stream is idle
// and ErrUnknownData when the stream head is neither message family;
// both mean "nothing usable this tick".
func (d *Device) ReadMessage(buf []byte) (int, error) {
	first, err := d.nextByte()
	if err != nil {
		return 0, readFault(err)
	}

	switch classify(first) {
	case TokenNMEA:
		return d.readNMEA(buf)
	case TokenUBX:
		return d.readUBX(buf)
	case TokenNone:
		return 0, ErrNoData
	}
	return 0, ErrUnknownData
}

// readNMEA streams bytes until the checksum mark, then reads the fixed
// four-byte trailer (two hex digits, CR, LF).
func (d *Device) readNMEA(buf []byte) (int, error) {
	if len(buf) < protocol.NMEASentenceMax {
		return 0, ErrOverflow
	}
	buf[0] = protocol.NMEAStart
	i := 1
	for {
		b, err := d.bus.ReadByte()
		if err != nil {
			return 0, readFault(err)
		}
		if i >= protocol.NMEASentenceMax-protocol.NMEATrailerLen {
			// Runaway sentence; the terminator never arrived.
			return 0, ErrUnknownData
		}
		buf[i] = b
		i++
		if b == protocol.NMEAChecksumMark {
			break
		}
	}
	if err := d.bus.Read(buf[i : i+protocol.NMEATrailerLen]); err != nil {
		return 0, readFault(err)
	}
	i += protocol.NMEATrailerLen

	if !protocol.VerifyNMEA(buf[:i]) {
		return 0, ErrBadChecksum
	}
	d.dispatchPUBX(buf[:i])
	return i, nil
}

// readUBX reads the four-byte header after the sync bytes, then exactly
// the embedded payload length plus the two checksum bytes. The read
// length is data-dependent and must come from the frame itself.
func (d *Device) readUBX(buf []byte) (int, error) {
	if len(buf) < protocol.UBXFrameMin {
		return 0, ErrOverflow
	}
	buf[0] = protocol.UBXSync1
	if err := d.bus.Read(buf[1 : 2+protocol.UBXHeaderLen]); err != nil {
		return 0, readFault(err)
	}
	if buf[1] != protocol.UBXSync2 {
		return 0, ErrUnknownData
	}

	length, _ := protocol.UBXLength(buf)
	total := protocol.UBXFrameMin + int(length)
	if total > len(buf) {
		return 0, ErrOverflow
	}
	if err := d.bus.Read(buf[2+protocol.UBXHeaderLen : total]); err != nil {
		return 0, readFault(err)
	}

	if !protocol.VerifyUBX(buf[:total]) {
		return 0, ErrBadChecksum
	}
	d.recordAckNak(buf[:total])
	return total, nil
}

// dispatchPUBX routes a validated sentence by the id at field 1.
// Standard (non-PUBX) sentences pass through untouched; the monitor
// layer handles those.
func (d *Device) dispatchPUBX(frame []byte) {
	fields, err := protocol.NMEAFields(frame)
	if err != nil || len(fields) < 2 || fields[0] != "PUBX" {
		return
	}

	switch fields[1] {
	case protocol.PUBXPosition:
		d.updatePosition(fields)
	case protocol.PUBXSVStatus:
		if len(fields) > 2 {
			if n, ok := atoi(fields[2]); ok {
				d.rec.svCount = n
			}
		}
	case protocol.PUBXTime:
		if len(fields) > 3 {
			d.rec.fix.Time = fields[2]
			d.rec.fix.Date = fields[3]
		}
	}
}

// updatePosition applies a PUBX,00 sentence:
// $PUBX,00,time,lat,NS,lon,EW,altRef,navStat,...
func (d *Device) updatePosition(fields []string) {
	if len(fields) < 9 || len(fields[4]) != 1 || len(fields[6]) != 1 {
		return
	}
	lat, err := protocol.ParseCoordinate(fields[3], fields[4][0])
	if err != nil {
		return
	}
	lon, err := protocol.ParseCoordinate(fields[5], fields[6][0])
	if err != nil {
		return
	}

	d.rec.fix.Time = fields[2]
	d.rec.fix.Latitude = lat
	d.rec.fix.LatRaw = fields[3]
	d.rec.fix.NS = fields[4][0]
	d.rec.fix.Longitude = lon
	d.rec.fix.LonRaw = fields[5]
	d.rec.fix.EW = fields[6][0]
	d.rec.fix.NavStatus = fields[8]
}

// recordAckNak counts UBX-ACK responses.
func (d *Device) recordAckNak(packet []byte) {
	class, id, ok := protocol.UBXClassID(packet)
	if !ok || class != protocol.UBXClassACK {
		return
	}
	if id == protocol.UBXIDAck {
		d.rec.ackCount++
	} else if id == protocol.UBXIDNak {
		d.rec.nakCount++
	}
}

// Send transmits a complete message. For CFG-class UBX messages the
// receiver's ACK/NAK answer is awaited and classified: a NAK or no
// answer at all is ErrInvalidConfig.
func (d *Device) Send(msg []byte) error {
	if len(msg) == 0 {
		return ErrInvalidConfig
	}
	if err := d.bus.Write(msg); err != nil {
		return writeFault(err)
	}
	if class, _, ok := protocol.UBXClassID(msg); ok && class == protocol.UBXClassCFG {
		return d.awaitAck()
	}
	return nil
}

// awaitAck drains incoming messages until a UBX-ACK arrives. Non-fatal
// read results (idle stream, foreign traffic, checksum noise) are
// skipped; transport faults propagate.
func (d *Device) awaitAck() error {
	buf := make([]byte, readBufMax)
	for attempt := 0; attempt < ackPollLimit; attempt++ {
		n, err := d.ReadMessage(buf)
		if err != nil {
			if errors.Is(err, ErrNoData) || errors.Is(err, ErrUnknownData) ||
				errors.Is(err, ErrBadChecksum) || errors.Is(err, ErrOverflow) {
				continue
			}
			return err
		}
		class, id, ok := protocol.UBXClassID(buf[:n])
		if !ok || class != protocol.UBXClassACK {
			continue
		}
		if id == protocol.UBXIDAck {
			return nil
		}
		return ErrInvalidConfig
	}
	return ErrInvalidConfig
}

// SendConfig validates and transmits one user-entered configuration
// line. UBX lines are the comma-separated hex form ("B5,62,...", with
// an optional "poll" token) and are sealed with a checksum before
// sending. NMEA lines are PUBX RATE/CONFIG sentence bodies; a field
// count that does not match the form is rejected without transmission.
func (d *Device) SendConfig(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidConfig
	}

	if strings.HasPrefix(text, "B5,") {
		bin, err := protocol.ConvertConfigText(text)
		if err != nil {
			return err
		}
		sealed, err := protocol.SealUBX(bin)
		if err != nil {
			return ErrInvalidConfig
		}
		return d.Send(sealed)
	}

	body := strings.TrimPrefix(text, "$")
	fields := strings.Split(body, ",")
	if err := checkPUBXConfig(fields); err != nil {
		return err
	}
	return d.Send([]byte(protocol.SealNMEA(body)))
}

// checkPUBXConfig enforces the field counts of the outgoing PUBX
// configuration forms.
func checkPUBXConfig(fields []string) error {
	if len(fields) < 2 || fields[0] != "PUBX" {
		return ErrInvalidConfig
	}
	switch fields[1] {
	case protocol.PUBXRate:
		if len(fields) != protocol.PUBXRateFields {
			return ErrInvalidConfig
		}
	case protocol.PUBXConfig:
		if len(fields) != protocol.PUBXConfigFields {
			return ErrInvalidConfig
		}
	default:
		return ErrInvalidConfig
	}
	return nil
}

// Fix returns a copy of the current fix record.
func (d *Device) Fix() Fix {
	return d.rec.fix
}

// NavStatus returns the cached two-character navigation status code,
// or the empty string before the first valid position message.
func (d *Device) NavStatus() string {
	return d.rec.fix.NavStatus
}

// HasFix reports whether the receiver claims a usable position
// solution. Time-only and no-fix states do not count.
func (d *Device) HasFix() bool {
	switch d.rec.fix.NavStatus {
	case "", NavNoFix, NavTimeOnly:
		return false
	}
	return true
}

// Satellites returns the satellite count from the last SVSTATUS
// message.
func (d *Device) Satellites() int {
	return d.rec.svCount
}

// AckCount returns the number of UBX-ACK-ACK messages seen.
func (d *Device) AckCount() uint32 {
	return d.rec.ackCount
}

// NakCount returns the number of UBX-ACK-NAK messages seen.
func (d *Device) NakCount() uint32 {
	return d.rec.nakCount
}

func readFault(err error) error {
	return fmt.Errorf("%w: %s", ErrReadFault, err)
}

func writeFault(err error) error {
	return fmt.Errorf("%w: %s", ErrWriteFault, err)
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
