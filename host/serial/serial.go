// Package serial provides the host-side UART binding to the receiver.
package serial

import (
	"io"
)

// Port represents a serial port. The abstraction keeps the rest of the
// host tooling independent of the concrete implementation (native
// serial, or a mock in tests).
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "/dev/serial0").
	Device string

	// Baud rate; u-blox receivers default to 9600.
	Baud int

	// Read timeout in milliseconds. Must be non-zero for the polled
	// bus adapter, which expects reads to return rather than block.
	ReadTimeout int
}

// DefaultConfig returns the standard receiver configuration.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 20,
	}
}
