package pca9685_test

import (
	"reflect"
	"testing"

	"github.com/edgehw/pwmd/internal/pca9685"
)

func TestRangePackets(t *testing.T) {
	tests := []struct {
		name    string
		ch      int
		on, off int
		want    []pca9685.Packet
	}{
		{"channel 0 half duty", 0, 0, 2047, []pca9685.Packet{
			{0x06, 0x00}, {0x07, 0x00}, {0x08, 0xFF}, {0x09, 0x07},
		}},
		{"channel 15 max step", 15, 0, 4095, []pca9685.Packet{
			{0x42, 0x00}, {0x43, 0x00}, {0x44, 0xFF}, {0x45, 0x0F},
		}},
		{"offset pulse", 3, 512, 1023, []pca9685.Packet{
			{0x12, 0x00}, {0x13, 0x02}, {0x14, 0xFF}, {0x15, 0x03},
		}},
	}
	for _, tc := range tests {
		got := pca9685.Range(tc.on, tc.off).Packets(tc.ch)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: Range(%d, %d).Packets(%d) = %v, want %v",
				tc.name, tc.on, tc.off, tc.ch, got, tc.want)
		}
	}
}

func TestFullOnPackets(t *testing.T) {
	// Full-on must set the ON_H latch bit and clear OFF_H — the full-off
	// latch takes precedence in hardware, so both latched at once would
	// leave the channel off.
	got := pca9685.FullOn().Packets(0)
	want := []pca9685.Packet{{0x07, 0x10}, {0x09, 0x00}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FullOn().Packets(0) = %v, want %v", got, want)
	}
}

func TestFullOffPackets(t *testing.T) {
	got := pca9685.FullOff().Packets(1)
	want := []pca9685.Packet{{0x0D, 0x10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FullOff().Packets(1) = %v, want %v", got, want)
	}
}

func TestDutyCycleSetting(t *testing.T) {
	tests := []struct {
		name    string
		duty    float64
		onStep  int
		want    pca9685.Setting
	}{
		{"half", 0.5, 0, pca9685.Range(0, 2047)},
		{"quarter", 0.25, 0, pca9685.Range(0, 1023)},
		{"half offset", 0.5, 100, pca9685.Range(100, 2147)},
		{"wraps around cycle end", 0.5, 3000, pca9685.Range(3000, 951)},
		{"zero is latched off", 0, 0, pca9685.FullOff()},
		{"negative is latched off", -0.5, 0, pca9685.FullOff()},
		{"one is latched on", 1, 0, pca9685.FullOn()},
		{"above one is latched on", 1.5, 0, pca9685.FullOn()},
		{"rounds to zero-length pulse", 1e-6, 0, pca9685.FullOff()},
	}
	for _, tc := range tests {
		if got := pca9685.DutyCycleSetting(tc.duty, tc.onStep); got != tc.want {
			t.Errorf("%s: DutyCycleSetting(%v, %d) = %+v, want %+v",
				tc.name, tc.duty, tc.onStep, got, tc.want)
		}
	}
}

func TestPulseLengthSetting(t *testing.T) {
	step := pca9685.StepLengthMicros(50) // 4.8828125 µs
	tests := []struct {
		name   string
		micros float64
		onStep int
		want   pca9685.Setting
	}{
		{"one step", step, 0, pca9685.Range(0, 0)},
		{"servo mid", 1500, 0, pca9685.Range(0, 306)}, // round(1500/4.883)=307
		{"full cycle", 4096 * step, 0, pca9685.Range(0, 4095)},
		{"beyond full cycle", 4097 * step, 0, pca9685.FullOn()},
		{"zero is latched off", 0, 0, pca9685.FullOff()},
		{"negative is latched off", -10, 0, pca9685.FullOff()},
		{"rounds to zero-length pulse", 0.5, 0, pca9685.FullOff()},
	}
	for _, tc := range tests {
		if got := pca9685.PulseLengthSetting(tc.micros, step, tc.onStep); got != tc.want {
			t.Errorf("%s: PulseLengthSetting(%v, %v, %d) = %+v, want %+v",
				tc.name, tc.micros, step, tc.onStep, got, tc.want)
		}
	}
}

// Pulse lengths of exactly k steps must land on the same off-step as the
// equivalent explicit range, for every k in a full cycle.
func TestPulseLengthMatchesRange(t *testing.T) {
	for _, freq := range []float64{50, 200, 1000} {
		step := pca9685.StepLengthMicros(freq)
		for k := 1; k <= 4096; k++ {
			got := pca9685.PulseLengthSetting(float64(k)*step, step, 0)
			want := pca9685.Range(0, k-1)
			if got != want {
				t.Fatalf("freq %v: pulse of %d steps = %+v, want %+v", freq, k, got, want)
			}
		}
	}
}

// A duty cycle in (0, 1) must produce exactly the packets of the range it
// computes — the generic 4-packet register write, never a latch packet.
func TestDutyCycleMatchesRange(t *testing.T) {
	for ch := 0; ch < 16; ch++ {
		for _, duty := range []float64{0.001, 0.25, 0.5, 0.75, 0.999} {
			s := pca9685.DutyCycleSetting(duty, 0)
			if s.IsFullOn() || s.IsFullOff() {
				t.Fatalf("duty %v: unexpected latched setting %+v", duty, s)
			}
			on, off := s.Steps()
			got := s.Packets(ch)
			want := pca9685.Range(on, off).Packets(ch)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("channel %d duty %v: packets %v, want %v", ch, duty, got, want)
			}
		}
	}
}
