package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devdvd/klogame-client/internal/klogame"
)

// RecordVisit appends a visit record and folds it into the cached stats
// inside one transaction. points is the value already computed by the
// scoring rule; the ledger does not know location point tables.
//
// The visits table's unique (edition_id, location_id) index is the
// authoritative guard: if a record for the pair already exists (say two
// rapid attempts both passed the eligibility pre-check), the insert is
// rejected and ErrAlreadyVisited is returned
// with nothing written.
func (s *Store) RecordVisit(ctx context.Context, editionID, locationID, locationName string, t klogame.VisitType, points int) (klogame.VisitRecord, error) {
	if !t.Valid() {
		return klogame.VisitRecord{}, fmt.Errorf("unknown visit type %q", t)
	}

	rec := klogame.VisitRecord{
		ID:           uuid.NewString(),
		EditionID:    editionID,
		LocationID:   locationID,
		LocationName: locationName,
		Type:         t,
		Points:       points,
		Timestamp:    time.Now().UTC(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return klogame.VisitRecord{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return klogame.VisitRecord{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO visits (id, edition_id, location_id, data) VALUES (?, ?, ?, jsonb(?))`,
		rec.ID, rec.EditionID, rec.LocationID, string(data),
	)
	if isUniqueViolation(err) {
		return klogame.VisitRecord{}, ErrAlreadyVisited
	}
	if err != nil {
		return klogame.VisitRecord{}, fmt.Errorf("inserting visit: %w", err)
	}

	// Incremental stats update, same transaction: a crash cannot leave
	// the log and the projection out of sync.
	var stats klogame.Stats
	if err := getDoc(ctx, tx, "documents", docStats, &stats); err != nil && !errors.Is(err, ErrNotFound) {
		return klogame.VisitRecord{}, fmt.Errorf("reading stats: %w", err)
	}
	stats.Apply(rec)
	if err := putDoc(ctx, tx, "documents", docStats, stats); err != nil {
		return klogame.VisitRecord{}, fmt.Errorf("updating stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return klogame.VisitRecord{}, err
	}
	return rec, nil
}

// AllVisits returns the full visit log in insertion order.
func (s *Store) AllVisits(ctx context.Context) ([]klogame.VisitRecord, error) {
	return s.queryVisits(ctx, `SELECT json(data) FROM visits ORDER BY rowid`)
}

// VisitsForLocation returns all records for the pair in insertion
// order. The invariant allows at most one, but the API does not assume it.
func (s *Store) VisitsForLocation(ctx context.Context, editionID, locationID string) ([]klogame.VisitRecord, error) {
	return s.queryVisits(ctx,
		`SELECT json(data) FROM visits WHERE edition_id = ? AND location_id = ? ORDER BY rowid`,
		editionID, locationID,
	)
}

func (s *Store) queryVisits(ctx context.Context, query string, args ...any) ([]klogame.VisitRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []klogame.VisitRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec klogame.VisitRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, err
		}
		visits = append(visits, rec)
	}
	return visits, rows.Err()
}

// LocationComplete reports whether the location already has a visit on
// record. Complete locations are never re-offered.
func (s *Store) LocationComplete(ctx context.Context, editionID, locationID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM visits WHERE edition_id = ? AND location_id = ?`,
		editionID, locationID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// VisitedLocationIDs returns the location IDs completed within one
// edition, in visit order. Used for progress and map marker state.
func (s *Store) VisitedLocationIDs(ctx context.Context, editionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT location_id FROM visits WHERE edition_id = ? ORDER BY rowid`,
		editionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns the cached aggregate projection. Zero stats if nothing
// has been recorded yet.
func (s *Store) Stats(ctx context.Context) (klogame.Stats, error) {
	var stats klogame.Stats
	err := getDoc(ctx, s.db, "documents", docStats, &stats)
	if errors.Is(err, ErrNotFound) {
		return klogame.Stats{}, nil
	}
	return stats, err
}

// RecomputeStats folds the full visit log and replaces the cached
// projection with the result. This is the recovery path for a store
// whose cache is suspected stale; for a healthy store it is a no-op.
func (s *Store) RecomputeStats(ctx context.Context) (klogame.Stats, error) {
	visits, err := s.AllVisits(ctx)
	if err != nil {
		return klogame.Stats{}, err
	}

	var stats klogame.Stats
	for _, v := range visits {
		stats.Apply(v)
	}

	if err := putDoc(ctx, s.db, "documents", docStats, stats); err != nil {
		return klogame.Stats{}, err
	}
	return stats, nil
}
