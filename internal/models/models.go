// Package models defines the shared API types for pwmd: the published
// channel/frequency state, update requests, and presets.
package models

// ChannelMode describes how a channel's output is configured.
type ChannelMode string

const (
	// ModeRange is a normal pulse defined by on/off steps.
	ModeRange ChannelMode = "range"
	// ModeOn is the chip's latched full-on state.
	ModeOn ChannelMode = "on"
	// ModeOff is the chip's latched full-off state.
	ModeOff ChannelMode = "off"
)

// Channel is the last-applied configuration of one PWM output.
type Channel struct {
	ID      int         `json:"id"`
	Mode    ChannelMode `json:"mode"`
	OnStep  int         `json:"on_step"`
	OffStep int         `json:"off_step"`
}

// State is the full published state of the controller.
type State struct {
	FrequencyHz float64   `json:"frequency_hz"`
	Channels    []Channel `json:"channels"`
}

// DefaultState returns 16 channels latched off at the default frequency.
func DefaultState(frequencyHz float64) State {
	s := State{FrequencyHz: frequencyHz, Channels: make([]Channel, 16)}
	for i := range s.Channels {
		s.Channels[i] = Channel{ID: i, Mode: ModeOff}
	}
	return s
}

// DeepCopy returns an independent copy of the state.
func (s State) DeepCopy() State {
	out := s
	out.Channels = make([]Channel, len(s.Channels))
	copy(out.Channels, s.Channels)
	return out
}

// ChannelUpdate is a PATCH request for one channel. Exactly one directive is
// applied, in this precedence order: Mode, DutyCycle, PulseMicros, steps.
type ChannelUpdate struct {
	Mode        *ChannelMode `json:"mode,omitempty"`     // "on" or "off"
	DutyCycle   *float64     `json:"duty_cycle,omitempty"`
	PulseMicros *float64     `json:"pulse_us,omitempty"`
	OnStep      *int         `json:"on_step,omitempty"`
	OffStep     *int         `json:"off_step,omitempty"`
}

// FrequencyUpdate is a PATCH request for the PWM cycle frequency.
type FrequencyUpdate struct {
	FrequencyHz float64 `json:"frequency_hz"`
}

// Preset is a named channel configuration that can be stored and re-applied.
// A zero FrequencyHz leaves the current frequency untouched.
type Preset struct {
	Name        string    `json:"name"`
	FrequencyHz float64   `json:"frequency_hz,omitempty"`
	Channels    []Channel `json:"channels"`
}

// Info describes the running daemon.
type Info struct {
	Version     string  `json:"version"`
	Transport   string  `json:"transport"`
	Address     string  `json:"address"` // device address, e.g. "0x40"
	FrequencyHz float64 `json:"frequency_hz"`
	StepMicros  float64 `json:"step_us"`
}
