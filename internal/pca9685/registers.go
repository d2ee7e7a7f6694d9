// Package pca9685 drives the NXP PCA9685 16-channel, 12-bit PWM controller.
// It translates channel intents (duty cycle, pulse length, full-on/full-off)
// into ordered single-byte register writes and serializes them onto a shared
// byte-register bus, one logical command at a time.
package pca9685

import "math"

// Register is a PCA9685 register address.
type Register = byte

// Register addresses matching the PCA9685 datasheet register map.
const (
	RegMode1      Register = 0x00 // Mode register 1 (sleep, restart, addressing)
	RegMode2      Register = 0x01 // Mode register 2 (output driver config)
	RegLED0OnL    Register = 0x06 // Channel 0 on-step low byte; 4 registers per channel
	RegAllLEDOnL  Register = 0xFA // Broadcast on-step low byte (all channels)
	RegAllLEDOnH  Register = 0xFB
	RegAllLEDOffL Register = 0xFC
	RegAllLEDOffH Register = 0xFD // Broadcast off-step high byte; FULL_OFF bit kills all outputs
	RegPrescale   Register = 0xFE // Clock prescaler; writable only while SLEEP is set
)

// MODE1 bits.
const (
	Mode1Restart byte = 0x80 // Write 1 after sleep to restart stopped PWM cycles
	Mode1ExtClk  byte = 0x40 // External clock input (never set by this driver)
	Mode1AI      byte = 0x20 // Register auto-increment
	Mode1Sleep   byte = 0x10 // Oscillator off; required for prescale writes
	Mode1AllCall byte = 0x01 // Respond to the LED all-call address
)

// MODE2 bits.
const (
	Mode2OutDrv byte = 0x04 // Totem-pole outputs (0 = open drain)
	Mode2Invrt  byte = 0x10 // Invert output logic
)

// FullBit is bit 4 of LEDn_ON_H / LEDn_OFF_H. Set in ON_H it latches the
// channel full-on; set in OFF_H it latches full-off and takes precedence.
const FullBit byte = 0x10

const (
	// ChannelCount is the number of PWM outputs on the chip.
	ChannelCount = 16
	// StepsPerCycle is the chip's time resolution: 4096 steps per PWM cycle.
	StepsPerCycle = 4096
	// StepMax is the highest valid on/off step value.
	StepMax = StepsPerCycle - 1

	// DefaultAddress is the chip's default I2C address (A5..A0 low).
	DefaultAddress byte = 0x40
	// DefaultFrequencyHz is the output frequency used when none is configured.
	DefaultFrequencyHz = 50

	oscillatorHz = 25_000_000 // internal oscillator

	// Hardware-asserted prescale limits (1526 Hz .. 24 Hz).
	prescaleMin = 0x03
	prescaleMax = 0xFF
)

// channelBase returns the first register (LEDn_ON_L) of the given channel.
// The caller must have validated the channel.
func channelBase(channel int) Register {
	return RegLED0OnL + Register(4*channel)
}

// Prescale computes the PRE_SCALE register value for a target output
// frequency: round(osc / (4096 * freq)) - 1, clamped to the chip's limits.
func Prescale(freqHz float64) byte {
	p := int(round(oscillatorHz/(StepsPerCycle*freqHz))) - 1
	if p < prescaleMin {
		p = prescaleMin
	}
	if p > prescaleMax {
		p = prescaleMax
	}
	return byte(p)
}

// StepLengthMicros returns the duration of one PWM step in microseconds for
// the given output frequency.
func StepLengthMicros(freqHz float64) float64 {
	return 1e6 / freqHz / StepsPerCycle
}

// round implements round-half-up, matching the chip documentation's examples.
func round(f float64) float64 {
	return math.Floor(f + 0.5)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
