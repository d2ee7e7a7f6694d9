package pca9685

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// settleDelay is the pause between restoring MODE1 and setting the RESTART
// bit. The datasheet requires the oscillator to be stopped for at least
// 500µs before restart; 10ms gives generous margin.
const settleDelay = 10 * time.Millisecond

// SetFrequency reprograms the PWM cycle frequency. The chip's prescaler can
// only be written while the oscillator is stopped, so the write sequence is:
// read MODE1, sleep, write prescale, restore MODE1, wait the settle delay,
// then set RESTART. done fires after the restart write completes, or earlier
// with the error that aborted the sequence. The driver's frequency and step
// length are updated together, so subsequent pulse-length translations use
// the new timing.
func (d *Driver) SetFrequency(freqHz float64, done func(error)) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := validFinite("frequency", freqHz); err != nil {
		return err
	}
	if freqHz <= 0 {
		return fmt.Errorf("%w: frequency %v must be positive", ErrInvalid, freqHz)
	}

	prescale := Prescale(freqHz)
	d.mu.Lock()
	d.freqHz = freqHz
	d.stepMicros = StepLengthMicros(freqHz)
	d.mu.Unlock()

	go d.reprogramPrescale(freqHz, prescale, done)
	return nil
}

func (d *Driver) reprogramPrescale(freqHz float64, prescale byte, done func(error)) {
	// The one read in an otherwise write-only protocol. A failure here is
	// fatal to the whole operation: reprogramming the prescaler around a
	// garbage MODE1 value could leave the oscillator stopped.
	oldMode, err := d.bus.ReadByteReg(context.Background(), d.addr, RegMode1)
	if err != nil {
		complete(done, fmt.Errorf("pca9685: read MODE1: %w", err))
		return
	}

	if d.debug {
		slog.Debug("pca9685: set frequency",
			"freq_hz", freqHz,
			"prescale", fmt.Sprintf("0x%02X", prescale),
			"mode1", fmt.Sprintf("0x%02X", oldMode),
		)
	}

	sleepMode := (oldMode &^ Mode1Restart) | Mode1Sleep
	d.seq.submit(newGroup([]Packet{
		{RegMode1, sleepMode},
		{RegPrescale, prescale},
		{RegMode1, oldMode},
	}, func(err error) {
		if err != nil {
			complete(done, err)
			return
		}
		time.AfterFunc(settleDelay, func() {
			d.seq.submit(newGroup([]Packet{{RegMode1, oldMode | Mode1Restart}}, done))
		})
	}))
}

func complete(done func(error), err error) {
	if done != nil {
		done(err)
	}
}
