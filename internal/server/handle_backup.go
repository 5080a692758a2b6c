package server

import (
	"net/http"

	"github.com/devdvd/klogame-client/internal/game"
	"github.com/devdvd/klogame-client/internal/klogame"
)

func handleExport(store *game.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.Export(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="klogame-backup.json"`)
		writeJSON(w, http.StatusOK, snap)
	}
}

// handleImport restores a previously exported snapshot. Only the
// sections present in the body are replaced, so a settings-only backup
// leaves the visit log alone.
func handleImport(store *game.Store, sess *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap klogame.Snapshot
		if err := readJSON(r, &snap); err != nil {
			writeError(w, http.StatusBadRequest, "invalid backup file")
			return
		}

		if err := store.Import(r.Context(), snap); err != nil {
			writeError(w, http.StatusInternalServerError, "import failed")
			return
		}
		sess.Invalidate()

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func handleClear(store *game.Store, sess *game.Session, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		sess.Invalidate()

		broker.Publish(GameEvent{Type: eventStoreCleared})
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
