package bus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SC18IM bridge command bytes (ASCII protocol per the NXP datasheet).
const (
	sc18imStart   = 'S' // start an I2C transaction
	sc18imStop    = 'P' // stop
	sc18imRegRead = 'R' // read bridge-internal register

	sc18imRegI2CStat = 0x0A // bridge I2C status register
	sc18imStatOK     = 0xF0 // transaction completed, ACKed
)

// SC18IM is a transport over an NXP SC18IM704 UART-to-I2C bridge. The bridge
// speaks a simple ASCII-framed protocol on a serial port, which lets the
// controller hang off any USB/UART adapter instead of a native I2C master.
type SC18IM struct {
	mu   sync.Mutex
	port serial.Port
}

// NewSC18IM opens the serial device the bridge is attached to. The SC18IM704
// defaults to 9600 baud 8N1 after reset.
func NewSC18IM(devPath string, baudRate int) (*SC18IM, error) {
	if baudRate == 0 {
		baudRate = 9600
	}
	port, err := serial.Open(devPath, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("sc18im: open %s: %w", devPath, err)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("sc18im: set read timeout: %w", err)
	}
	return &SC18IM{port: port}, nil
}

// sc18imWriteFrame frames a register write: S <addr|W> <len> <reg> <val> P.
// addr is the 7-bit device address.
func sc18imWriteFrame(addr, reg, val byte) []byte {
	return []byte{sc18imStart, addr << 1, 2, reg, val, sc18imStop}
}

// sc18imReadFrame frames a write-then-read with repeated start:
// S <addr|W> 1 <reg> S <addr|R> 1 P. The bridge replies with one data byte.
func sc18imReadFrame(addr, reg byte) []byte {
	return []byte{sc18imStart, addr << 1, 1, reg, sc18imStart, addr<<1 | 1, 1, sc18imStop}
}

// sc18imStatFrame asks the bridge for its I2C status register.
func sc18imStatFrame() []byte {
	return []byte{sc18imRegRead, sc18imRegI2CStat, sc18imStop}
}

func (b *SC18IM) WriteByteReg(ctx context.Context, addr, reg, val byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return Error("sc18im: transport closed")
	}
	if _, err := b.port.Write(sc18imWriteFrame(addr, reg, val)); err != nil {
		return fmt.Errorf("sc18im: write 0x%02x reg=0x%02x: %w", addr, reg, err)
	}
	// The bridge does not acknowledge writes on its own; poll its status
	// register so NACKs surface as errors instead of silent data loss.
	if _, err := b.port.Write(sc18imStatFrame()); err != nil {
		return fmt.Errorf("sc18im: query status: %w", err)
	}
	var stat [1]byte
	if _, err := io.ReadFull(b.port, stat[:]); err != nil {
		return fmt.Errorf("sc18im: read status: %w", err)
	}
	if stat[0] != sc18imStatOK {
		return Error(fmt.Sprintf("sc18im: write 0x%02x reg=0x%02x: bridge status 0x%02x", addr, reg, stat[0]))
	}
	return nil
}

func (b *SC18IM) ReadByteReg(ctx context.Context, addr, reg byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return 0, Error("sc18im: transport closed")
	}
	if _, err := b.port.Write(sc18imReadFrame(addr, reg)); err != nil {
		return 0, fmt.Errorf("sc18im: read 0x%02x reg=0x%02x: %w", addr, reg, err)
	}
	var data [1]byte
	if _, err := io.ReadFull(b.port, data[:]); err != nil {
		return 0, fmt.Errorf("sc18im: read 0x%02x reg=0x%02x: %w", addr, reg, err)
	}
	return data[0], nil
}

func (b *SC18IM) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	return err
}
