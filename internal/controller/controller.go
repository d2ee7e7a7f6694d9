// Package controller is the single source of truth for the daemon's
// channel/frequency state. It drives the PCA9685 driver, waits for each
// device command to complete, and publishes state updates to the event bus.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/edgehw/pwmd/internal/events"
	"github.com/edgehw/pwmd/internal/models"
	"github.com/edgehw/pwmd/internal/pca9685"
	"github.com/edgehw/pwmd/internal/presets"
)

// Version is reported by the info endpoint.
const Version = "0.1.0"

// Controller owns the last-applied state of all 16 channels.
type Controller struct {
	mu        sync.RWMutex
	state     models.State
	drv       *pca9685.Driver
	store     *presets.Store
	bus       *events.Bus
	transport string
}

// New creates a Controller around an initialized driver. The driver's init
// sequence has already forced every channel off, so the initial state is all
// channels off at the driver's frequency.
func New(drv *pca9685.Driver, store *presets.Store, bus *events.Bus, transport string) *Controller {
	return &Controller{
		state:     models.DefaultState(drv.Frequency()),
		drv:       drv,
		store:     store,
		bus:       bus,
		transport: transport,
	}
}

// State returns a deep copy of the current state.
func (c *Controller) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.DeepCopy()
}

// GetChannel returns one channel's last-applied configuration.
func (c *Controller) GetChannel(id int) (*models.Channel, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || id >= len(c.state.Channels) {
		return nil, models.ErrNotFound(fmt.Sprintf("no channel %d", id))
	}
	ch := c.state.Channels[id]
	return &ch, nil
}

// SetChannel applies one directive from the update (mode, duty cycle, pulse
// length, or an explicit step range — in that precedence order), waits for
// the device command to complete, then records and publishes the new state.
func (c *Controller) SetChannel(ctx context.Context, id int, upd models.ChannelUpdate) (models.State, *models.AppError) {
	setting, appErr := c.settingFor(upd)
	if appErr != nil {
		return models.State{}, appErr
	}

	if appErr := c.wait(ctx, func(done func(error)) error {
		return c.drv.Set(id, setting, done)
	}); appErr != nil {
		return models.State{}, appErr
	}

	return c.apply(func(s *models.State) {
		s.Channels[id] = channelModel(id, setting)
	}), nil
}

// AllOff turns every channel off with the broadcast register.
func (c *Controller) AllOff(ctx context.Context) (models.State, *models.AppError) {
	if appErr := c.wait(ctx, func(done func(error)) error {
		return c.drv.AllChannelsOff(done)
	}); appErr != nil {
		return models.State{}, appErr
	}
	return c.apply(func(s *models.State) {
		for i := range s.Channels {
			s.Channels[i] = models.Channel{ID: i, Mode: models.ModeOff}
		}
	}), nil
}

// SetFrequency reprograms the PWM cycle frequency. The wait spans the whole
// reconfiguration protocol, including the oscillator settle delay.
func (c *Controller) SetFrequency(ctx context.Context, upd models.FrequencyUpdate) (models.State, *models.AppError) {
	if appErr := c.wait(ctx, func(done func(error)) error {
		return c.drv.SetFrequency(upd.FrequencyHz, done)
	}); appErr != nil {
		return models.State{}, appErr
	}
	return c.apply(func(s *models.State) {
		s.FrequencyHz = upd.FrequencyHz
	}), nil
}

// GetPresets returns all stored presets.
func (c *Controller) GetPresets() []models.Preset {
	return c.store.List()
}

// GetPreset returns one stored preset by name.
func (c *Controller) GetPreset(name string) (*models.Preset, *models.AppError) {
	p, ok := c.store.Get(name)
	if !ok {
		return nil, models.ErrNotFound("no preset " + name)
	}
	return &p, nil
}

// SavePreset validates and stores a preset.
func (c *Controller) SavePreset(ctx context.Context, p models.Preset) (*models.Preset, *models.AppError) {
	if p.Name == "" {
		return nil, models.ErrBadRequest("preset name is required")
	}
	for _, ch := range p.Channels {
		if ch.ID < 0 || ch.ID >= pca9685.ChannelCount {
			return nil, models.ErrBadRequest(fmt.Sprintf("preset channel %d out of range", ch.ID))
		}
		switch ch.Mode {
		case models.ModeRange, models.ModeOn, models.ModeOff:
		default:
			return nil, models.ErrBadRequest(fmt.Sprintf("preset channel %d: unknown mode %q", ch.ID, ch.Mode))
		}
	}
	if err := c.store.Save(p); err != nil {
		return nil, models.ErrInternal("save preset: " + err.Error())
	}
	return &p, nil
}

// DeletePreset removes a stored preset.
func (c *Controller) DeletePreset(ctx context.Context, name string) *models.AppError {
	if _, ok := c.store.Get(name); !ok {
		return models.ErrNotFound("no preset " + name)
	}
	if err := c.store.Delete(name); err != nil {
		return models.ErrInternal("delete preset: " + err.Error())
	}
	return nil
}

// LoadPreset applies a stored preset: frequency first (when set), then each
// channel in order. The first failure aborts the rest.
func (c *Controller) LoadPreset(ctx context.Context, name string) (models.State, *models.AppError) {
	p, ok := c.store.Get(name)
	if !ok {
		return models.State{}, models.ErrNotFound("no preset " + name)
	}

	if p.FrequencyHz > 0 {
		if _, appErr := c.SetFrequency(ctx, models.FrequencyUpdate{FrequencyHz: p.FrequencyHz}); appErr != nil {
			return models.State{}, appErr
		}
	}
	for _, ch := range p.Channels {
		upd := channelUpdate(ch)
		if _, appErr := c.SetChannel(ctx, ch.ID, upd); appErr != nil {
			return models.State{}, appErr
		}
	}
	return c.State(), nil
}

// Info describes the daemon and device.
func (c *Controller) Info() models.Info {
	return models.Info{
		Version:     Version,
		Transport:   c.transport,
		Address:     fmt.Sprintf("0x%02X", c.drv.Address()),
		FrequencyHz: c.drv.Frequency(),
		StepMicros:  c.drv.StepLengthMicros(),
	}
}

// settingFor translates an update request into a channel setting.
func (c *Controller) settingFor(upd models.ChannelUpdate) (pca9685.Setting, *models.AppError) {
	onStep := 0
	if upd.OnStep != nil {
		onStep = *upd.OnStep
	}
	switch {
	case upd.Mode != nil:
		switch *upd.Mode {
		case models.ModeOn:
			return pca9685.FullOn(), nil
		case models.ModeOff:
			return pca9685.FullOff(), nil
		default:
			return pca9685.Setting{}, models.ErrBadRequest(fmt.Sprintf("mode must be %q or %q", models.ModeOn, models.ModeOff))
		}
	case upd.DutyCycle != nil:
		return pca9685.DutyCycleSetting(*upd.DutyCycle, onStep), nil
	case upd.PulseMicros != nil:
		return pca9685.PulseLengthSetting(*upd.PulseMicros, c.drv.StepLengthMicros(), onStep), nil
	case upd.OffStep != nil:
		return pca9685.Range(onStep, *upd.OffStep), nil
	default:
		return pca9685.Setting{}, models.ErrBadRequest("update must set mode, duty_cycle, pulse_us or off_step")
	}
}

// wait submits a device command and blocks until its completion fires.
// Synchronous validation failures map to 400, transport failures to 502.
func (c *Controller) wait(ctx context.Context, submit func(done func(error)) error) *models.AppError {
	errc := make(chan error, 1)
	if err := submit(func(err error) { errc <- err }); err != nil {
		if errors.Is(err, pca9685.ErrInvalid) {
			return models.ErrBadRequest(err.Error())
		}
		if errors.Is(err, pca9685.ErrClosed) {
			return models.ErrInternal(err.Error())
		}
		return models.ErrInternal(err.Error())
	}
	select {
	case err := <-errc:
		if err != nil {
			return models.ErrHardware(err.Error())
		}
		return nil
	case <-ctx.Done():
		return models.ErrInternal("cancelled waiting for device: " + ctx.Err().Error())
	}
}

// apply mutates a copy of the state under the lock, publishes it, and
// returns it.
func (c *Controller) apply(fn func(*models.State)) models.State {
	c.mu.Lock()
	next := c.state.DeepCopy()
	fn(&next)
	c.state = next
	c.mu.Unlock()
	c.bus.Publish(next)
	return next
}

// channelModel records the applied setting for the published state.
func channelModel(id int, s pca9685.Setting) models.Channel {
	switch {
	case s.IsFullOn():
		return models.Channel{ID: id, Mode: models.ModeOn}
	case s.IsFullOff():
		return models.Channel{ID: id, Mode: models.ModeOff}
	default:
		on, off := s.Steps()
		return models.Channel{ID: id, Mode: models.ModeRange, OnStep: on, OffStep: off}
	}
}

// channelUpdate converts a stored preset channel back into an update request.
func channelUpdate(ch models.Channel) models.ChannelUpdate {
	switch ch.Mode {
	case models.ModeOn, models.ModeOff:
		mode := ch.Mode
		return models.ChannelUpdate{Mode: &mode}
	default:
		on, off := ch.OnStep, ch.OffStep
		return models.ChannelUpdate{OnStep: &on, OffStep: &off}
	}
}
