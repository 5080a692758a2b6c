package server

import (
	"net/http"

	"github.com/devdvd/klogame-client/internal/game"
	"github.com/devdvd/klogame-client/internal/klogame"
)

func handleGetSettings(store *game.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := store.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

// handleSaveSettings persists the requested settings. The store applies
// the hardcore ratchet, so the response body is what actually took
// effect rather than what was asked for.
func handleSaveSettings(store *game.Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req klogame.Settings
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.MaxDistance <= 0 {
			writeError(w, http.StatusBadRequest, "maxDistance must be positive")
			return
		}

		saved, err := store.SaveSettings(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(GameEvent{Type: eventSettingsUpdated})
		writeJSON(w, http.StatusOK, saved)
	}
}
