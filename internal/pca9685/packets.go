package pca9685

// Packet is one atomic bus write: a register address and the byte to store.
type Packet struct {
	Reg Register
	Val byte
}

// PacketGroup is one logical device command: an ordered, non-empty packet
// sequence applied without interleaving, plus exactly one completion
// notification.
type PacketGroup struct {
	Packets []Packet
	done    func(error)
}

func newGroup(packets []Packet, done func(error)) *PacketGroup {
	return &PacketGroup{Packets: packets, done: done}
}

// complete fires the group's notification. The sequencer calls this exactly
// once per group.
func (g *PacketGroup) complete(err error) {
	if g.done != nil {
		g.done(err)
	}
}

type settingKind int

const (
	kindRange settingKind = iota
	kindFullOn
	kindFullOff
)

// Setting is the desired output state of one channel: a normal on/off step
// range, or one of the chip's latched full-on/full-off special cases. Keeping
// the intent tagged here means the register layer never has to re-derive it
// from raw bytes.
type Setting struct {
	kind settingKind
	on   int
	off  int
}

// Range describes a pulse that goes high at onStep and low at offStep.
// Steps must already be validated to [0, StepMax].
func Range(onStep, offStep int) Setting {
	return Setting{kind: kindRange, on: onStep, off: offStep}
}

// FullOn latches the channel permanently high.
func FullOn() Setting { return Setting{kind: kindFullOn} }

// FullOff latches the channel permanently low.
func FullOff() Setting { return Setting{kind: kindFullOff} }

// IsFullOn reports whether the setting is the latched full-on state.
func (s Setting) IsFullOn() bool { return s.kind == kindFullOn }

// IsFullOff reports whether the setting is the latched full-off state.
func (s Setting) IsFullOff() bool { return s.kind == kindFullOff }

// Steps returns the on/off steps of a range setting (0, 0 for the latched
// states).
func (s Setting) Steps() (onStep, offStep int) { return s.on, s.off }

// Packets encodes the setting as register writes for the given channel.
// A range is the generic 4-packet low/high write of both step registers,
// with the high bytes masked to the 12-bit register width. Full-on sets the
// latch bit in ON_H and clears OFF_H so the (higher-precedence) full-off
// latch cannot remain set; full-off is a single OFF_H write.
func (s Setting) Packets(channel int) []Packet {
	base := channelBase(channel)
	switch s.kind {
	case kindFullOn:
		return []Packet{
			{base + 1, FullBit},
			{base + 3, 0x00},
		}
	case kindFullOff:
		return []Packet{
			{base + 3, FullBit},
		}
	default:
		return []Packet{
			{base + 0, byte(s.on)},
			{base + 1, byte(s.on>>8) & 0x0F},
			{base + 2, byte(s.off)},
			{base + 3, byte(s.off>>8) & 0x0F},
		}
	}
}

// allOffPacket turns every channel off with a single broadcast write,
// bypassing per-channel addressing.
var allOffPacket = Packet{RegAllLEDOffH, FullBit}

// DutyCycleSetting converts a duty-cycle fraction into a channel setting.
// Non-positive duty is the latched full-off state (not a zero-length pulse)
// and duty >= 1 is latched full-on.
func DutyCycleSetting(duty float64, onStep int) Setting {
	if duty <= 0 {
		return FullOff()
	}
	if duty >= 1 {
		return FullOn()
	}
	steps := int(round(duty*StepsPerCycle)) - 1
	if steps < 0 {
		// Rounds to a zero-length pulse.
		return FullOff()
	}
	return Range(onStep, (onStep+steps)%StepsPerCycle)
}

// PulseLengthSetting converts a pulse length in microseconds into a channel
// setting, given the current step length. Pulses longer than a full cycle
// saturate to full-on.
func PulseLengthSetting(pulseMicros, stepMicros float64, onStep int) Setting {
	if pulseMicros <= 0 {
		return FullOff()
	}
	steps := int(round(pulseMicros/stepMicros)) - 1
	if steps > StepMax {
		return FullOn()
	}
	if steps < 0 {
		return FullOff()
	}
	return Range(onStep, (onStep+steps)%StepsPerCycle)
}
