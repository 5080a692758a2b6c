// Package klogame defines the core domain types of the check-in game.
// It has zero external dependencies; everything here is pure Go.
package klogame

import "time"

// VisitType distinguishes the two check-in actions.
type VisitType string

const (
	VisitPee  VisitType = "pinkeln"
	VisitPoop VisitType = "kacken"
)

// Valid reports whether t is one of the two known visit types.
func (t VisitType) Valid() bool {
	return t == VisitPee || t == VisitPoop
}

// Points holds the point values a location awards for each visit type.
// A "kacken" visit implicitly includes the pee action, so it awards
// Pee+Poop, not Poop alone. See Score in the game package.
type Points struct {
	Pee  int `json:"pee"`
	Poop int `json:"poop"`
}

// Coordinates is a [latitude, longitude] pair in decimal degrees,
// matching the catalog wire format.
type Coordinates [2]float64

func (c Coordinates) Lat() float64 { return c[0] }
func (c Coordinates) Lng() float64 { return c[1] }

// Location is a geotagged check-in target. Locations belong to exactly
// one edition and are immutable once downloaded.
type Location struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Metadata    Metadata    `json:"metadata"`
	Points      Points      `json:"points"`
}

// EditionType classifies how an edition is unlocked.
type EditionType string

const (
	EditionFree     EditionType = "free"
	EditionPremium  EditionType = "premium"
	EditionSeasonal EditionType = "seasonal"
)

// DateRange bounds the availability of a seasonal edition.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// UnlockConditions describe what it takes to play an edition.
type UnlockConditions struct {
	PaymentRequired  bool       `json:"payment_required"`
	DateRange        *DateRange `json:"date_range"`
	RequiresEditions []string   `json:"requires_editions"`
}

// EditionMetadata is the catalog listing entry for an edition, without
// its locations.
type EditionMetadata struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Type             EditionType      `json:"type"`
	Version          string           `json:"version"`
	Icon             string           `json:"icon"`
	UnlockConditions UnlockConditions `json:"unlock_conditions"`
	ParentEditions   []string         `json:"parent_editions"`
	LocationsCount   int              `json:"locations_count"`
}

// Edition is a full downloaded edition including its ordered locations.
// Editions are versioned snapshots: re-downloading replaces the cached
// copy wholesale, it is never mutated in place.
type Edition struct {
	EditionMetadata
	Locations []Location `json:"locations"`
}

// Location returns the location with the given id, if the edition
// contains it.
func (e Edition) Location(id string) (Location, bool) {
	for _, l := range e.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// VisitRecord is an immutable fact: one completed check-in. Records are
// append-only; at most one exists per (edition, location) pair.
type VisitRecord struct {
	ID           string    `json:"id"`
	EditionID    string    `json:"edition_id"`
	LocationID   string    `json:"location_id"`
	LocationName string    `json:"location_name"`
	Type         VisitType `json:"type"`
	Points       int       `json:"points_awarded"`
	Timestamp    time.Time `json:"timestamp"`
}

// Stats is the cached aggregate projection over the visit log.
// Recomputing it by folding the log must reproduce it exactly.
type Stats struct {
	TotalPoints    int `json:"totalPoints"`
	TotalVisits    int `json:"totalVisits"`
	PeeCount       int `json:"peeCount"`
	PoopCount      int `json:"poopCount"`
	LocationsCount int `json:"locationsCount"`
}

// Apply folds one visit into the stats.
func (s *Stats) Apply(v VisitRecord) {
	s.TotalPoints += v.Points
	s.TotalVisits++
	switch v.Type {
	case VisitPee:
		s.PeeCount++
	case VisitPoop:
		s.PoopCount++
	}
	// One visit per location, so every visit completes a new location.
	s.LocationsCount++
}

// Settings is the persisted game configuration.
//
// Invariant: HardcoreMode implies GeoMode, and once HardcoreMode is true
// it can never be turned off again. Both are enforced at write time by
// the settings store.
type Settings struct {
	GeoMode      bool    `json:"geoMode"`
	HardcoreMode bool    `json:"hardcoreMode"`
	MaxDistance  float64 `json:"maxDistance"`
}

// DefaultSettings are returned when nothing has been persisted yet.
func DefaultSettings() Settings {
	return Settings{GeoMode: false, HardcoreMode: false, MaxDistance: 100}
}

// Snapshot is the whole-store backup document. A nil field means "key
// absent": import leaves the corresponding store section untouched.
type Snapshot struct {
	ActiveEditionID *string            `json:"activeEdition,omitempty"`
	Editions        map[string]Edition `json:"editions,omitempty"`
	Visits          []VisitRecord      `json:"visits,omitempty"`
	Stats           *Stats             `json:"stats,omitempty"`
	Settings        *Settings          `json:"settings,omitempty"`
}
