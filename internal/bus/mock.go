package bus

import (
	"context"
	"sync"
	"time"
)

// WriteRecord is one successful register write captured by the mock.
type WriteRecord struct {
	Addr byte
	Reg  byte
	Val  byte
}

// Mock is a thread-safe in-memory register-map transport for testing and
// development. It records every successful write in order and supports
// failure injection and per-operation delays.
type Mock struct {
	mu        sync.Mutex
	regs      map[byte]map[byte]byte // addr → register → value
	writes    []WriteRecord
	failWrite bool
	failRead  bool
	failAfter int // -1 disabled; otherwise remaining writes before failures start
	delay     time.Duration
	onWrite   func(WriteRecord)
}

// NewMock creates an empty mock transport.
func NewMock() *Mock {
	return &Mock{
		regs:      make(map[byte]map[byte]byte),
		failAfter: -1,
	}
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// SetFailAfter lets the next n writes succeed, fails the single write after
// them, then returns to normal operation. Pass a negative n to disable.
func (m *Mock) SetFailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// SetDelay makes every operation sleep for d, simulating bus timing.
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetOnWrite installs a hook invoked after each successful write.
func (m *Mock) SetOnWrite(fn func(WriteRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWrite = fn
}

func (m *Mock) WriteByteReg(ctx context.Context, addr, reg, val byte) error {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	if m.failWrite {
		m.mu.Unlock()
		return Error("mock: write failure configured")
	}
	if m.failAfter == 0 {
		m.failAfter = -1
		m.mu.Unlock()
		return Error("mock: injected write failure")
	}
	if m.failAfter > 0 {
		m.failAfter--
	}
	if _, ok := m.regs[addr]; !ok {
		m.regs[addr] = make(map[byte]byte)
	}
	m.regs[addr][reg] = val
	rec := WriteRecord{Addr: addr, Reg: reg, Val: val}
	m.writes = append(m.writes, rec)
	hook := m.onWrite
	m.mu.Unlock()

	if hook != nil {
		hook(rec)
	}
	return nil
}

func (m *Mock) ReadByteReg(ctx context.Context, addr, reg byte) (byte, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return 0, Error("mock: read failure configured")
	}
	if regs, ok := m.regs[addr]; ok {
		return regs[reg], nil
	}
	return 0, nil
}

func (m *Mock) Close() error { return nil }

// Reg returns a register value for test assertions.
func (m *Mock) Reg(addr, reg byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if regs, ok := m.regs[addr]; ok {
		return regs[reg]
	}
	return 0
}

// Writes returns a snapshot of all successful writes in order.
func (m *Mock) Writes() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteRecord, len(m.writes))
	copy(out, m.writes)
	return out
}

// ResetWrites clears the recorded write log (register contents are kept).
func (m *Mock) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}
