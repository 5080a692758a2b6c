package server

import (
	"net/http"

	"github.com/devdvd/klogame-client/internal/game"
)

func handleStats(store *game.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// handleRecomputeStats refolds the visit log into the cached totals.
// Useful after an import or when the cache is suspect.
func handleRecomputeStats(store *game.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.RecomputeStats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
