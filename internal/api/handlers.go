package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edgehw/pwmd/internal/models"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) getChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": h.ctrl.State().Channels})
}

func (h *Handlers) getChannel(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	ch, appErr := h.ctrl.GetChannel(id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *Handlers) setChannel(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.ChannelUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	state, appErr := h.ctrl.SetChannel(r.Context(), id, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) allOff(w http.ResponseWriter, r *http.Request) {
	state, appErr := h.ctrl.AllOff(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) setFrequency(w http.ResponseWriter, r *http.Request) {
	var upd models.FrequencyUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	state, appErr := h.ctrl.SetFrequency(r.Context(), upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": h.ctrl.GetPresets()})
}

func (h *Handlers) getPreset(w http.ResponseWriter, r *http.Request) {
	p, appErr := h.ctrl.GetPreset(chi.URLParam(r, "name"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) savePreset(w http.ResponseWriter, r *http.Request) {
	var p models.Preset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	p.Name = chi.URLParam(r, "name")
	saved, appErr := h.ctrl.SavePreset(r.Context(), p)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handlers) deletePreset(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.DeletePreset(r.Context(), chi.URLParam(r, "name")); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) loadPreset(w http.ResponseWriter, r *http.Request) {
	state, appErr := h.ctrl.LoadPreset(r.Context(), chi.URLParam(r, "name"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Info())
}
