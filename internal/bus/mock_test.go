package bus_test

import (
	"context"
	"testing"

	"github.com/edgehw/pwmd/internal/bus"
)

func TestMockRecordsWrites(t *testing.T) {
	m := bus.NewMock()
	ctx := context.Background()

	if err := m.WriteByteReg(ctx, 0x40, 0x06, 0x12); err != nil {
		t.Fatalf("WriteByteReg: %v", err)
	}
	if err := m.WriteByteReg(ctx, 0x40, 0x07, 0x03); err != nil {
		t.Fatalf("WriteByteReg: %v", err)
	}

	want := []bus.WriteRecord{
		{0x40, 0x06, 0x12},
		{0x40, 0x07, 0x03},
	}
	got := m.Writes()
	if len(got) != len(want) {
		t.Fatalf("recorded %d writes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if v, err := m.ReadByteReg(ctx, 0x40, 0x06); err != nil || v != 0x12 {
		t.Errorf("ReadByteReg(0x40, 0x06) = %#x, %v; want 0x12, nil", v, err)
	}
	// Unwritten registers read as zero.
	if v, err := m.ReadByteReg(ctx, 0x41, 0x06); err != nil || v != 0 {
		t.Errorf("ReadByteReg(0x41, 0x06) = %#x, %v; want 0, nil", v, err)
	}

	m.ResetWrites()
	if got := m.Writes(); len(got) != 0 {
		t.Errorf("writes after reset: %v", got)
	}
	// Register contents survive a write-log reset.
	if v := m.Reg(0x40, 0x07); v != 0x03 {
		t.Errorf("Reg(0x40, 0x07) = %#x, want 0x03", v)
	}
}

func TestMockFailAfterFailsExactlyOnce(t *testing.T) {
	m := bus.NewMock()
	ctx := context.Background()
	m.SetFailAfter(2)

	for i := 0; i < 2; i++ {
		if err := m.WriteByteReg(ctx, 0x40, byte(i), 1); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := m.WriteByteReg(ctx, 0x40, 2, 1); err == nil {
		t.Fatal("third write should have failed")
	}
	// The injection is one-shot; the mock recovers on its own.
	if err := m.WriteByteReg(ctx, 0x40, 3, 1); err != nil {
		t.Fatalf("write after injected failure: %v", err)
	}

	// The failed write must not appear in the log or the register map.
	if got := len(m.Writes()); got != 3 {
		t.Errorf("recorded %d writes, want 3", got)
	}
	if v := m.Reg(0x40, 2); v != 0 {
		t.Errorf("failed write stored value %#x", v)
	}
}

func TestMockFailToggles(t *testing.T) {
	m := bus.NewMock()
	ctx := context.Background()

	m.SetFailWrite(true)
	if err := m.WriteByteReg(ctx, 0x40, 0, 1); err == nil {
		t.Error("write should fail while SetFailWrite(true)")
	}
	m.SetFailWrite(false)
	if err := m.WriteByteReg(ctx, 0x40, 0, 1); err != nil {
		t.Errorf("write after SetFailWrite(false): %v", err)
	}

	m.SetFailRead(true)
	if _, err := m.ReadByteReg(ctx, 0x40, 0); err == nil {
		t.Error("read should fail while SetFailRead(true)")
	}
	m.SetFailRead(false)
	if v, err := m.ReadByteReg(ctx, 0x40, 0); err != nil || v != 1 {
		t.Errorf("read after SetFailRead(false) = %#x, %v; want 1, nil", v, err)
	}
}
