package server

import (
	"errors"
	"net/http"

	"github.com/devdvd/klogame-client/internal/game"
	"github.com/devdvd/klogame-client/internal/klogame"
)

// GameStateResponse is the one-call summary the presentation layer
// renders from: the active edition with per-location visited flags,
// overall progress, and the stats panel.
type GameStateResponse struct {
	Edition  *klogame.Edition `json:"edition"`
	Progress *game.Progress   `json:"progress"`
	Stats    klogame.Stats    `json:"stats"`
}

func handleGameState(sess *game.Session, store *game.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp GameStateResponse

		stats, err := store.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Stats = stats

		edition, ok, err := sess.ActiveEdition(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ok {
			resp.Edition = &edition
			progress, err := sess.Progress(r.Context())
			if err != nil && !errors.Is(err, game.ErrNoActiveEdition) {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if err == nil {
				resp.Progress = &progress
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
