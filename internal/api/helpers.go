// Package api implements the HTTP REST API for pwmd.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edgehw/pwmd/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the interface the handlers use to interact with the system state.
type Controller interface {
	State() models.State
	GetChannel(id int) (*models.Channel, *models.AppError)
	SetChannel(ctx context.Context, id int, upd models.ChannelUpdate) (models.State, *models.AppError)
	AllOff(ctx context.Context) (models.State, *models.AppError)
	SetFrequency(ctx context.Context, upd models.FrequencyUpdate) (models.State, *models.AppError)
	GetPresets() []models.Preset
	GetPreset(name string) (*models.Preset, *models.AppError)
	SavePreset(ctx context.Context, p models.Preset) (*models.Preset, *models.AppError)
	DeletePreset(ctx context.Context, name string) *models.AppError
	LoadPreset(ctx context.Context, name string) (models.State, *models.AppError)
	Info() models.Info
}

// EventBus is the interface for subscribing to state change events.
type EventBus interface {
	Subscribe(id string) <-chan models.State
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}
