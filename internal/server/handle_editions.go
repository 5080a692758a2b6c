package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devdvd/klogame-client/internal/game"
)

// EditionsResponse is the catalog listing annotated with local state.
type EditionsResponse struct {
	Editions []game.EditionListing `json:"editions"`
}

func handleListEditions(sess *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := sess.ListEditions(r.Context())
		if err != nil {
			// Catalog unreachable: visible but non-fatal, retry is manual.
			writeError(w, http.StatusBadGateway, "catalog unavailable")
			return
		}
		if listings == nil {
			listings = []game.EditionListing{}
		}
		writeJSON(w, http.StatusOK, EditionsResponse{Editions: listings})
	}
}

func handleActivateEdition(sess *game.Session, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "edition id is required")
			return
		}

		edition, err := sess.ActivateEdition(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not load edition")
			return
		}

		broker.Publish(GameEvent{Type: eventEditionActivated, EditionID: edition.ID})
		writeJSON(w, http.StatusOK, edition)
	}
}
