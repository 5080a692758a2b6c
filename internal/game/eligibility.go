package game

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devdvd/klogame-client/internal/geo"
	"github.com/devdvd/klogame-client/internal/klogame"
)

// Reason explains an eligibility verdict.
type Reason string

const (
	ReasonEligible            Reason = "eligible"
	ReasonAlreadyComplete     Reason = "already_complete"
	ReasonOutOfRange          Reason = "out_of_range"
	ReasonPositionUnavailable Reason = "position_unavailable"
)

// Eligibility is the verdict for one location at one moment. It is a
// snapshot: anything can change between check and commit, which is why
// RecordVisit re-validates atomically.
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	// Distance is the measured distance in meters, present only when a
	// range check actually ran.
	Distance *float64 `json:"distance,omitempty"`
}

// Score returns the points a visit of type t to loc awards. A kacken
// visit completes the full interaction, so it awards pee+poop points,
// not the poop value alone.
func Score(loc klogame.Location, t klogame.VisitType) int {
	switch t {
	case klogame.VisitPee:
		return loc.Points.Pee
	case klogame.VisitPoop:
		return loc.Points.Pee + loc.Points.Poop
	}
	return 0
}

// Engine decides whether a location may be visited. It is read-only: it
// never writes to the ledger.
type Engine struct {
	store  *Store
	logger *slog.Logger
}

func NewEngine(store *Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Check runs the eligibility rules in priority order:
//
//  1. a completed location is never re-offered, regardless of geo state;
//  2. without geo or hardcore mode there is no distance gating;
//  3. otherwise the live position decides, and if no position can be
//     acquired the answer is "not eligible", never "go ahead".
func (e *Engine) Check(ctx context.Context, editionID string, loc klogame.Location, settings klogame.Settings, locator geo.Locator) Eligibility {
	complete, err := e.store.LocationComplete(ctx, editionID, loc.ID)
	if err != nil {
		// Degraded storage: assume not complete here and let the
		// ledger's unique index reject a duplicate at commit time.
		e.logger.Error("reading visit log", "edition", editionID, "location", loc.ID, "error", err)
	}
	if complete {
		return Eligibility{Allowed: false, Reason: ReasonAlreadyComplete}
	}

	if !settings.GeoMode && !settings.HardcoreMode {
		return Eligibility{Allowed: true, Reason: ReasonEligible}
	}

	target := geo.Point{Lat: loc.Coordinates.Lat(), Lng: loc.Coordinates.Lng()}
	res, err := locator.CheckRange(ctx, target, settings.MaxDistance)
	if err != nil {
		if !errors.Is(err, geo.ErrPositionUnavailable) {
			e.logger.Error("range check", "location", loc.ID, "error", err)
		}
		return Eligibility{Allowed: false, Reason: ReasonPositionUnavailable}
	}

	d := res.Distance
	if !res.WithinRange {
		return Eligibility{Allowed: false, Reason: ReasonOutOfRange, Distance: &d}
	}
	return Eligibility{Allowed: true, Reason: ReasonEligible, Distance: &d}
}
