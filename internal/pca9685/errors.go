package pca9685

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by all validation errors. Validation happens
// synchronously, before any packet is queued.
var ErrInvalid = errors.New("pca9685: invalid argument")

// ErrClosed is returned for operations on a closed driver and delivered to
// groups submitted after the sequencer shut down.
var ErrClosed = errors.New("pca9685: driver closed")

func validChannel(channel int) error {
	if channel < 0 || channel >= ChannelCount {
		return fmt.Errorf("%w: channel %d out of range [0, %d]", ErrInvalid, channel, ChannelCount-1)
	}
	return nil
}

func validStep(name string, step int) error {
	if step < 0 || step > StepMax {
		return fmt.Errorf("%w: %s %d out of range [0, %d]", ErrInvalid, name, step, StepMax)
	}
	return nil
}

func validFinite(name string, v float64) error {
	if !isFinite(v) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalid, name)
	}
	return nil
}
