package m8q

import (
	"tinygo.org/x/drivers"
)

// DDC port constants for the M8 family.
const (
	// DefaultAddress is the receiver's 7-bit I2C address.
	DefaultAddress = 0x42

	regBytesAvail = 0xFD // 16-bit pending byte count, big-endian
	regStream     = 0xFF // message stream, yields 0xFF when idle
)

// I2CBus binds the driver to the receiver's DDC (I2C) port. The stream
// register does not auto-increment, so sequential reads drain the
// receiver's message buffer in order.
type I2CBus struct {
	bus   drivers.I2C
	addr  uint16
	ready func() bool
}

// NewI2CBus creates a DDC binding. ready is the optional TX-ready line
// read; when nil, readiness falls back to polling the pending byte
// count over the bus.
func NewI2CBus(bus drivers.I2C, addr uint16, ready func() bool) *I2CBus {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &I2CBus{bus: bus, addr: addr, ready: ready}
}

// Available reads the 16-bit pending byte count.
func (b *I2CBus) Available() (int, error) {
	var cnt [2]byte
	if err := b.bus.Tx(b.addr, []byte{regBytesAvail}, cnt[:]); err != nil {
		return 0, err
	}
	return int(cnt[0])<<8 | int(cnt[1]), nil
}

// Ready reports whether message bytes are pending.
func (b *I2CBus) Ready() bool {
	if b.ready != nil {
		return b.ready()
	}
	n, err := b.Available()
	return err == nil && n > 0
}

// ReadByte reads one byte from the stream register. An idle stream
// yields NoDataByte.
func (b *I2CBus) ReadByte() (byte, error) {
	var one [1]byte
	if err := b.bus.Tx(b.addr, []byte{regStream}, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// Read fills p from the stream register.
func (b *I2CBus) Read(p []byte) error {
	return b.bus.Tx(b.addr, []byte{regStream}, p)
}

// Write sends p to the receiver.
func (b *I2CBus) Write(p []byte) error {
	return b.bus.Tx(b.addr, p, nil)
}
