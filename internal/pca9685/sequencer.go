package pca9685

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgehw/pwmd/internal/bus"
)

// sequencer serializes packet groups onto the bus. Groups execute strictly
// in submission order, one at a time; packets within a group are written one
// register at a time, never pipelined. A write failure abandons the rest of
// the failing group only — queued groups still run.
type sequencer struct {
	bus   bus.Bus
	addr  byte
	debug bool

	mu      sync.Mutex
	queue   []*PacketGroup
	running bool
	closed  bool
}

func newSequencer(b bus.Bus, addr byte, debug bool) *sequencer {
	return &sequencer{bus: b, addr: addr, debug: debug}
}

// submit appends a group to the queue and returns immediately. The group's
// notification fires once from the dispatcher goroutine — with ErrClosed if
// the sequencer has already shut down.
func (s *sequencer) submit(g *PacketGroup) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go g.complete(ErrClosed)
		return
	}
	s.queue = append(s.queue, g)
	if !s.running {
		s.running = true
		go s.run()
	}
	s.mu.Unlock()
}

// run drains the queue. At most one run goroutine exists at a time, which is
// what guarantees at most one group (and one register write) in flight.
func (s *sequencer) run() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		g := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		g.complete(s.dispatch(g))
	}
}

func (s *sequencer) dispatch(g *PacketGroup) error {
	for i, p := range g.Packets {
		if s.debug {
			slog.Debug("pca9685: write", "reg", fmt.Sprintf("0x%02X", p.Reg), "val", fmt.Sprintf("0x%02X", p.Val))
		}
		if err := s.bus.WriteByteReg(context.Background(), s.addr, p.Reg, p.Val); err != nil {
			return fmt.Errorf("pca9685: write reg 0x%02X (packet %d of %d): %w", p.Reg, i+1, len(g.Packets), err)
		}
	}
	return nil
}

// close rejects future submissions. Groups already queued still drain; the
// in-flight group is never cancelled.
func (s *sequencer) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
