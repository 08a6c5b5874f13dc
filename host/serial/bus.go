package serial

import (
	"fmt"

	"navcore/protocol"
)

// idleByte mirrors the receiver's idle stream sentinel so a serial
// binding behaves like the DDC port: an empty stream reads as 0xFF.
const idleByte = 0xFF

// fillTries bounds how many timed-out port reads a single Read is
// allowed to ride out while a message trickles in at line rate.
const fillTries = 64

// Bus adapts a Port to the driver's byte-stream transport. Incoming
// bytes are staged in a FIFO so readiness can be polled without
// consuming anything. The port must be opened with a read timeout.
type Bus struct {
	port    Port
	fifo    *protocol.Fifo
	scratch [256]byte
}

// NewBus wraps an open port.
func NewBus(port Port) *Bus {
	return &Bus{
		port: port,
		fifo: protocol.NewFifo(2048),
	}
}

// fill performs one timed port read into the FIFO.
func (b *Bus) fill() error {
	n, err := b.port.Read(b.scratch[:])
	if err != nil {
		return err
	}
	if n > 0 {
		b.fifo.Write(b.scratch[:n])
	}
	return nil
}

// Ready reports whether message bytes are pending.
func (b *Bus) Ready() bool {
	if b.fifo.IsEmpty() {
		if err := b.fill(); err != nil {
			return false
		}
	}
	return !b.fifo.IsEmpty()
}

// ReadByte returns the next stream byte, or the idle sentinel when
// nothing is pending.
func (b *Bus) ReadByte() (byte, error) {
	if b.fifo.IsEmpty() {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	if v, ok := b.fifo.ReadByte(); ok {
		return v, nil
	}
	return idleByte, nil
}

// Read fills p, waiting out a bounded number of port timeouts for
// in-flight bytes.
func (b *Bus) Read(p []byte) error {
	got := 0
	for try := 0; got < len(p); try++ {
		got += b.fifo.Read(p[got:])
		if got == len(p) {
			break
		}
		if try >= fillTries {
			return fmt.Errorf("serial read stalled at %d/%d bytes", got, len(p))
		}
		if err := b.fill(); err != nil {
			return err
		}
	}
	return nil
}

// Write sends p to the receiver.
func (b *Bus) Write(p []byte) error {
	n, err := b.port.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(p))
	}
	return nil
}
