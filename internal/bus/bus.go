// Package bus provides byte-register transports for register-oriented I2C
// devices. It defines the Bus interface consumed by the pca9685 driver and
// the concrete transports: Linux I2C_RDWR ioctl, periph.io, an SC18IM
// UART-to-I2C bridge, and an in-memory mock.
package bus

import "context"

// Bus is a single-byte register transport. Implementations are safe for
// concurrent use, but callers are expected to issue one transfer at a time;
// the pca9685 sequencer guarantees that by construction.
type Bus interface {
	// WriteByteReg writes one byte to a register on the device at addr.
	WriteByteReg(ctx context.Context, addr, reg, val byte) error

	// ReadByteReg reads one byte from a register on the device at addr.
	ReadByteReg(ctx context.Context, addr, reg byte) (byte, error)

	// Close releases the underlying transport.
	Close() error
}

// Error is returned when a transport operation fails.
type Error string

func (e Error) Error() string { return string(e) }
