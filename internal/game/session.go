package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/devdvd/klogame-client/internal/analytics"
	"github.com/devdvd/klogame-client/internal/geo"
	"github.com/devdvd/klogame-client/internal/klogame"
)

// ErrNoActiveEdition is returned by operations that need an activated
// edition when none is selected.
var ErrNoActiveEdition = errors.New("no active edition")

// Catalog is the slice of the companion server the session needs.
type Catalog interface {
	ListEditions(ctx context.Context) ([]klogame.EditionMetadata, error)
	DownloadEdition(ctx context.Context, id string) (klogame.Edition, error)
}

// VisitDenied is the typed failure of AttemptVisit: an expected,
// frequent outcome, carried as a value rather than a panic-worthy
// anomaly.
type VisitDenied struct {
	Reason   Reason
	Distance *float64
}

func (e *VisitDenied) Error() string {
	return fmt.Sprintf("visit denied: %s", e.Reason)
}

// Session is the orchestrator the presentation layer talks to. It owns
// the transient active-edition selection (restored from the persisted
// pointer) and is the sole write path into the visit ledger.
type Session struct {
	store   *Store
	engine  *Engine
	catalog Catalog
	events  analytics.Sink
	logger  *slog.Logger

	mu     sync.RWMutex
	active *klogame.Edition
}

func NewSession(store *Store, cat Catalog, events analytics.Sink, logger *slog.Logger) *Session {
	if events == nil {
		events = analytics.Discard{}
	}
	return &Session{
		store:   store,
		engine:  NewEngine(store, logger),
		catalog: cat,
		events:  events,
		logger:  logger,
	}
}

// ActivateEdition makes the edition the current one for map display and
// eligibility. A fully cached copy is used as-is; otherwise the edition
// is downloaded from the catalog and cached. The pointer is persisted
// so the selection survives a restart.
func (s *Session) ActivateEdition(ctx context.Context, id string) (klogame.Edition, error) {
	edition, err := s.store.Edition(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && len(edition.Locations) == 0) {
		edition, err = s.catalog.DownloadEdition(ctx, id)
		if err != nil {
			return klogame.Edition{}, fmt.Errorf("downloading edition %s: %w", id, err)
		}
		if err := s.store.SaveEdition(ctx, edition); err != nil {
			return klogame.Edition{}, fmt.Errorf("caching edition %s: %w", id, err)
		}
		s.events.Track(analytics.Event{Event: analytics.EventEditionDownloaded, EditionID: id})
	} else if err != nil {
		return klogame.Edition{}, fmt.Errorf("loading cached edition %s: %w", id, err)
	}

	if err := s.store.SetActiveEdition(ctx, edition.ID); err != nil {
		return klogame.Edition{}, fmt.Errorf("persisting active edition: %w", err)
	}

	s.mu.Lock()
	s.active = &edition
	s.mu.Unlock()

	s.events.Track(analytics.Event{Event: analytics.EventEditionActivated, EditionID: edition.ID})
	s.logger.Info("edition activated", "edition", edition.ID, "locations", len(edition.Locations))
	return edition, nil
}

// ActiveEdition returns the current edition, lazily restoring it from
// the persisted pointer after a restart. ok is false when nothing is
// selected.
func (s *Session) ActiveEdition(ctx context.Context) (klogame.Edition, bool, error) {
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	if active != nil {
		return *active, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring the write lock.
	if s.active != nil {
		return *s.active, true, nil
	}

	id, err := s.store.ActiveEditionID(ctx)
	if errors.Is(err, ErrNotFound) {
		return klogame.Edition{}, false, nil
	}
	if err != nil {
		return klogame.Edition{}, false, err
	}

	edition, err := s.store.Edition(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// Pointer survived but the cached copy did not (partial import,
		// cleared cache). Treat as no selection.
		s.logger.Warn("active edition pointer without cached edition", "edition", id)
		return klogame.Edition{}, false, nil
	}
	if err != nil {
		return klogame.Edition{}, false, err
	}

	s.active = &edition
	return edition, true, nil
}

// Invalidate drops the in-memory selection so the next read goes back
// to the persisted pointer. Called after imports and clears.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

// Progress is the per-edition completion summary.
type Progress struct {
	EditionID string   `json:"editionId"`
	Visited   int      `json:"visited"`
	Total     int      `json:"total"`
	Locations []string `json:"visitedLocations"`
}

// Progress reports how much of the active edition is complete.
func (s *Session) Progress(ctx context.Context) (Progress, error) {
	edition, ok, err := s.ActiveEdition(ctx)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrNoActiveEdition
	}

	ids, err := s.store.VisitedLocationIDs(ctx, edition.ID)
	if err != nil {
		return Progress{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return Progress{
		EditionID: edition.ID,
		Visited:   len(ids),
		Total:     len(edition.Locations),
		Locations: ids,
	}, nil
}

// settings reads the persisted settings, degrading to the defaults on
// storage failure. Gating must still work when local storage is sick.
func (s *Session) settings(ctx context.Context) klogame.Settings {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		s.logger.Error("reading settings, using defaults", "error", err)
		return klogame.DefaultSettings()
	}
	return settings
}

// resolveLocation finds the location in the current active edition.
// Resolving at call time also discards stale requests: if the user
// switched editions while a position fix was in flight, the location is
// simply no longer there.
func (s *Session) resolveLocation(ctx context.Context, locationID string) (klogame.Edition, klogame.Location, error) {
	edition, ok, err := s.ActiveEdition(ctx)
	if err != nil {
		return klogame.Edition{}, klogame.Location{}, err
	}
	if !ok {
		return klogame.Edition{}, klogame.Location{}, ErrNoActiveEdition
	}
	loc, ok := edition.Location(locationID)
	if !ok {
		return klogame.Edition{}, klogame.Location{}, ErrNotFound
	}
	return edition, loc, nil
}

// CheckLocation answers "may this location be visited right now, and
// what has happened here before". Read-only; the verdict is a snapshot
// and AttemptVisit re-checks before committing.
func (s *Session) CheckLocation(ctx context.Context, locationID string, locator geo.Locator) (klogame.Location, Eligibility, []klogame.VisitRecord, error) {
	edition, loc, err := s.resolveLocation(ctx, locationID)
	if err != nil {
		return klogame.Location{}, Eligibility{}, nil, err
	}

	elig := s.engine.Check(ctx, edition.ID, loc, s.settings(ctx), locator)

	visits, err := s.store.VisitsForLocation(ctx, edition.ID, loc.ID)
	if err != nil {
		s.logger.Error("reading visit history", "location", loc.ID, "error", err)
		visits = nil
	}
	return loc, elig, visits, nil
}

// AttemptVisit is the transactional boundary: it re-runs the
// eligibility check, commits the visit through the ledger (whose unique
// index is the final arbiter), and fires the analytics notification.
// Analytics failure never fails the commit.
func (s *Session) AttemptVisit(ctx context.Context, locationID string, t klogame.VisitType, locator geo.Locator) (klogame.VisitRecord, error) {
	if !t.Valid() {
		return klogame.VisitRecord{}, fmt.Errorf("unknown visit type %q", t)
	}

	edition, loc, err := s.resolveLocation(ctx, locationID)
	if err != nil {
		return klogame.VisitRecord{}, err
	}

	elig := s.engine.Check(ctx, edition.ID, loc, s.settings(ctx), locator)
	if !elig.Allowed {
		return klogame.VisitRecord{}, &VisitDenied{Reason: elig.Reason, Distance: elig.Distance}
	}

	points := Score(loc, t)
	rec, err := s.store.RecordVisit(ctx, edition.ID, loc.ID, loc.Name, t, points)
	if errors.Is(err, ErrAlreadyVisited) {
		// Lost a check-then-act race: someone committed between our
		// check and our insert. Same outcome as the pre-check.
		return klogame.VisitRecord{}, &VisitDenied{Reason: ReasonAlreadyComplete}
	}
	if err != nil {
		return klogame.VisitRecord{}, fmt.Errorf("recording visit: %w", err)
	}

	s.events.Track(analytics.Event{
		Event:      analytics.EventVisitRecorded,
		EditionID:  rec.EditionID,
		LocationID: rec.LocationID,
		Location:   rec.LocationName,
		Type:       string(rec.Type),
		Points:     rec.Points,
	})

	s.logger.Info("visit recorded",
		"edition", rec.EditionID,
		"location", rec.LocationID,
		"type", rec.Type,
		"points", rec.Points,
	)
	return rec, nil
}

// ListEditions merges the catalog listing with local knowledge: which
// editions are fully cached and which one is active.
type EditionListing struct {
	klogame.EditionMetadata
	Cached bool `json:"cached"`
	Active bool `json:"active"`
}

func (s *Session) ListEditions(ctx context.Context) ([]EditionListing, error) {
	metas, err := s.catalog.ListEditions(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := s.store.Editions(ctx)
	if err != nil {
		s.logger.Error("reading cached editions", "error", err)
		cached = nil
	}

	activeID := ""
	if edition, ok, err := s.ActiveEdition(ctx); err == nil && ok {
		activeID = edition.ID
	}

	listings := make([]EditionListing, len(metas))
	for i, m := range metas {
		_, isCached := cached[m.ID]
		listings[i] = EditionListing{
			EditionMetadata: m,
			Cached:          isCached,
			Active:          m.ID == activeID,
		}
	}
	return listings, nil
}
