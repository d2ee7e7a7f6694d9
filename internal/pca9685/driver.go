package pca9685

import (
	"fmt"
	"sync"

	"github.com/edgehw/pwmd/internal/bus"
)

// Config holds the driver's construction options. Bus is required; zero
// values for the rest select the chip defaults.
type Config struct {
	Bus         bus.Bus // byte-register transport, borrowed for the driver's lifetime
	Address     byte    // device address, default 0x40
	FrequencyHz float64 // PWM cycle frequency, default 50
	Debug       bool    // log every register write at debug level
}

// Driver is the façade over one PCA9685. Public operations validate their
// arguments synchronously, then queue register writes on the sequencer and
// report completion through an optional done callback (nil for
// fire-and-forget). The bus handle is treated as exclusively owned; sharing
// one address between drivers is undefined.
type Driver struct {
	bus   bus.Bus
	addr  byte
	seq   *sequencer
	debug bool

	mu         sync.Mutex
	freqHz     float64
	stepMicros float64
	closed     bool
}

// New creates a Driver and starts its initialization sequence: reset the
// mode registers to defaults, force all channels off, then apply the
// configured frequency. ready fires once with nil after the frequency
// restart completes, or with the first error — an init failure leaves the
// driver unusable and the caller must treat it as fatal to this instance.
func New(cfg Config, ready func(error)) (*Driver, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalid)
	}
	addr := cfg.Address
	if addr == 0 {
		addr = DefaultAddress
	}
	freq := cfg.FrequencyHz
	if freq == 0 {
		freq = DefaultFrequencyHz
	}
	if err := validFinite("frequency", freq); err != nil {
		return nil, err
	}
	if freq < 0 {
		return nil, fmt.Errorf("%w: frequency %v must be positive", ErrInvalid, freq)
	}

	d := &Driver{
		bus:        cfg.Bus,
		addr:       addr,
		debug:      cfg.Debug,
		freqHz:     freq,
		stepMicros: StepLengthMicros(freq),
	}
	d.seq = newSequencer(cfg.Bus, addr, cfg.Debug)
	d.init(freq, ready)
	return d, nil
}

// init chains the three construction steps; each step runs only after the
// previous one completed on the device.
func (d *Driver) init(freqHz float64, ready func(error)) {
	d.seq.submit(newGroup([]Packet{
		{RegMode2, Mode2OutDrv},
		{RegMode1, Mode1AllCall},
	}, func(err error) {
		if err != nil {
			complete(ready, err)
			return
		}
		d.seq.submit(newGroup([]Packet{allOffPacket}, func(err error) {
			if err != nil {
				complete(ready, err)
				return
			}
			if err := d.SetFrequency(freqHz, ready); err != nil {
				complete(ready, err)
			}
		}))
	}))
}

// Address returns the device address the driver talks to.
func (d *Driver) Address() byte { return d.addr }

// Frequency returns the configured PWM cycle frequency in Hz.
func (d *Driver) Frequency() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freqHz
}

// StepLengthMicros returns the current duration of one step in microseconds.
func (d *Driver) StepLengthMicros() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepMicros
}

// SetPulseRange sets a channel's output to go high at onStep and low at
// offStep within each cycle.
func (d *Driver) SetPulseRange(channel, onStep, offStep int, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validChannel(channel); err != nil {
		return err
	}
	if err := validStep("on step", onStep); err != nil {
		return err
	}
	if err := validStep("off step", offStep); err != nil {
		return err
	}
	d.submitSetting(channel, Range(onStep, offStep), done)
	return nil
}

// SetDutyCycle sets a channel to the given fraction of each cycle, starting
// at onStep. Fractions at or below 0 latch the channel full-off; at or above
// 1 full-on.
func (d *Driver) SetDutyCycle(channel int, dutyCycle float64, onStep int, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validChannel(channel); err != nil {
		return err
	}
	if err := validStep("on step", onStep); err != nil {
		return err
	}
	if err := validFinite("duty cycle", dutyCycle); err != nil {
		return err
	}
	d.submitSetting(channel, DutyCycleSetting(dutyCycle, onStep), done)
	return nil
}

// SetPulseLength sets a channel's pulse length in microseconds, starting at
// onStep, using the current step length. Pulses longer than one cycle latch
// full-on; non-positive lengths latch full-off.
func (d *Driver) SetPulseLength(channel int, pulseMicros float64, onStep int, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validChannel(channel); err != nil {
		return err
	}
	if err := validStep("on step", onStep); err != nil {
		return err
	}
	if err := validFinite("pulse length", pulseMicros); err != nil {
		return err
	}
	d.mu.Lock()
	stepMicros := d.stepMicros
	d.mu.Unlock()
	d.submitSetting(channel, PulseLengthSetting(pulseMicros, stepMicros, onStep), done)
	return nil
}

// ChannelOn latches a channel full-on.
func (d *Driver) ChannelOn(channel int, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validChannel(channel); err != nil {
		return err
	}
	d.submitSetting(channel, FullOn(), done)
	return nil
}

// ChannelOff latches a channel full-off.
func (d *Driver) ChannelOff(channel int, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validChannel(channel); err != nil {
		return err
	}
	d.submitSetting(channel, FullOff(), done)
	return nil
}

// AllChannelsOff turns every output off with a single broadcast write.
func (d *Driver) AllChannelsOff(done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.seq.submit(newGroup([]Packet{allOffPacket}, done))
	return nil
}

// Set applies a pre-built channel setting. Steps of a range setting must be
// within [0, StepMax].
func (d *Driver) Set(channel int, setting Setting, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validChannel(channel); err != nil {
		return err
	}
	if setting.kind == kindRange {
		if err := validStep("on step", setting.on); err != nil {
			return err
		}
		if err := validStep("off step", setting.off); err != nil {
			return err
		}
	}
	d.submitSetting(channel, setting, done)
	return nil
}

func (d *Driver) submitSetting(channel int, s Setting, done func(error)) {
	d.seq.submit(newGroup(s.Packets(channel), done))
}

func (d *Driver) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// Close forces all channels off (best-effort, fire-and-forget) and shuts the
// sequencer down. Queued groups still drain; later operations return
// ErrClosed. The bus handle is not closed — the driver only borrows it.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.seq.submit(newGroup([]Packet{allOffPacket}, nil))
	d.seq.close()
	return nil
}
