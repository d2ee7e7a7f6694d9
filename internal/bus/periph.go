package bus

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Periph is a transport on top of periph.io's I2C stack. It is portable
// across the hosts periph supports and is the transport of choice when the
// raw Linux ioctl path is unavailable.
type Periph struct {
	mu  sync.Mutex
	bus i2c.BusCloser
}

// NewPeriph initializes the periph host drivers and opens the named I2C bus.
// An empty name selects the first available bus.
func NewPeriph(name string) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph: host init: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periph: open i2c bus %q: %w", name, err)
	}
	return &Periph{bus: b}, nil
}

func (p *Periph) WriteByteReg(ctx context.Context, addr, reg, val byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return Error("periph: transport closed")
	}
	if err := p.bus.Tx(uint16(addr), []byte{reg, val}, nil); err != nil {
		return fmt.Errorf("periph: write 0x%02x reg=0x%02x: %w", addr, reg, err)
	}
	return nil
}

func (p *Periph) ReadByteReg(ctx context.Context, addr, reg byte) (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return 0, Error("periph: transport closed")
	}
	var rbuf [1]byte
	if err := p.bus.Tx(uint16(addr), []byte{reg}, rbuf[:]); err != nil {
		return 0, fmt.Errorf("periph: read 0x%02x reg=0x%02x: %w", addr, reg, err)
	}
	return rbuf[0], nil
}

func (p *Periph) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus = nil
	return err
}
