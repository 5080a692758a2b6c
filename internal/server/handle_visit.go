package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devdvd/klogame-client/internal/game"
	"github.com/devdvd/klogame-client/internal/geo"
	"github.com/devdvd/klogame-client/internal/klogame"
)

// RequestPosition is the position fix the presentation layer acquired
// from the browser sensor and ships along with the request. Absent
// position while geo gating is on means "position unavailable".
type RequestPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

func locatorFor(pos *RequestPosition, timeout time.Duration) geo.Locator {
	if pos == nil {
		return geo.Locator{Provider: geo.NoProvider{}, Timeout: timeout}
	}
	return geo.Locator{
		Provider: geo.StaticProvider{
			Point:    geo.Point{Lat: pos.Latitude, Lng: pos.Longitude},
			Accuracy: pos.Accuracy,
		},
		Timeout: timeout,
	}
}

// EligibilityRequest carries the optional position fix.
type EligibilityRequest struct {
	Position *RequestPosition `json:"position"`
}

// EligibilityResponse is the read-only verdict plus the location's
// display data and visit history.
type EligibilityResponse struct {
	Location        klogame.Location      `json:"location"`
	Allowed         bool                  `json:"allowed"`
	Reason          game.Reason           `json:"reason"`
	Distance        *float64              `json:"distance,omitempty"`
	DistanceDisplay string                `json:"distanceDisplay,omitempty"`
	Visits          []klogame.VisitRecord `json:"visits"`
}

func handleEligibility(sess *game.Session, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req EligibilityRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		loc, elig, visits, err := sess.CheckLocation(r.Context(), id, locatorFor(req.Position, timeout))
		if errors.Is(err, game.ErrNoActiveEdition) {
			writeError(w, http.StatusConflict, "no active edition")
			return
		}
		if errors.Is(err, game.ErrNotFound) {
			writeError(w, http.StatusNotFound, "location not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if visits == nil {
			visits = []klogame.VisitRecord{}
		}
		resp := EligibilityResponse{
			Location: loc,
			Allowed:  elig.Allowed,
			Reason:   elig.Reason,
			Distance: elig.Distance,
			Visits:   visits,
		}
		if elig.Distance != nil {
			resp.DistanceDisplay = geo.FormatDistance(*elig.Distance)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// VisitRequest commits a check-in.
type VisitRequest struct {
	LocationID string            `json:"locationId"`
	Type       klogame.VisitType `json:"type"`
	Position   *RequestPosition  `json:"position"`
}

// VisitDeniedResponse explains a rejected attempt.
type VisitDeniedResponse struct {
	Error           string      `json:"error"`
	Reason          game.Reason `json:"reason"`
	Distance        *float64    `json:"distance,omitempty"`
	DistanceDisplay string      `json:"distanceDisplay,omitempty"`
}

func handleVisit(sess *game.Session, timeout time.Duration, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VisitRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.LocationID == "" {
			writeError(w, http.StatusBadRequest, "locationId is required")
			return
		}
		if !req.Type.Valid() {
			writeError(w, http.StatusBadRequest, "type must be pinkeln or kacken")
			return
		}

		rec, err := sess.AttemptVisit(r.Context(), req.LocationID, req.Type, locatorFor(req.Position, timeout))

		var denied *game.VisitDenied
		switch {
		case errors.As(err, &denied):
			resp := VisitDeniedResponse{
				Error:    string(denied.Reason),
				Reason:   denied.Reason,
				Distance: denied.Distance,
			}
			if denied.Distance != nil {
				resp.DistanceDisplay = geo.FormatDistance(*denied.Distance)
			}
			writeJSON(w, http.StatusConflict, resp)
			return
		case errors.Is(err, game.ErrNoActiveEdition):
			writeError(w, http.StatusConflict, "no active edition")
			return
		case errors.Is(err, game.ErrNotFound):
			writeError(w, http.StatusNotFound, "location not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(GameEvent{
			Type:       eventVisitRecorded,
			EditionID:  rec.EditionID,
			LocationID: rec.LocationID,
			Points:     rec.Points,
		})
		writeJSON(w, http.StatusCreated, rec)
	}
}
