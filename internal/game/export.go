package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/devdvd/klogame-client/internal/klogame"
)

// Export serializes the whole store (active edition pointer, cached
// editions, visit log, stats, settings) as one snapshot for backup.
func (s *Store) Export(ctx context.Context) (klogame.Snapshot, error) {
	var snap klogame.Snapshot

	if id, err := s.ActiveEditionID(ctx); err == nil {
		snap.ActiveEditionID = &id
	} else if !errors.Is(err, ErrNotFound) {
		return klogame.Snapshot{}, fmt.Errorf("exporting active edition: %w", err)
	}

	editions, err := s.Editions(ctx)
	if err != nil {
		return klogame.Snapshot{}, fmt.Errorf("exporting editions: %w", err)
	}
	snap.Editions = editions

	visits, err := s.AllVisits(ctx)
	if err != nil {
		return klogame.Snapshot{}, fmt.Errorf("exporting visits: %w", err)
	}
	if visits == nil {
		visits = []klogame.VisitRecord{}
	}
	snap.Visits = visits

	stats, err := s.Stats(ctx)
	if err != nil {
		return klogame.Snapshot{}, fmt.Errorf("exporting stats: %w", err)
	}
	snap.Stats = &stats

	settings, err := s.Settings(ctx)
	if err != nil {
		return klogame.Snapshot{}, fmt.Errorf("exporting settings: %w", err)
	}
	snap.Settings = &settings

	return snap, nil
}

// Import restores a snapshot in one transaction. Each section present
// in the snapshot overwrites the corresponding store section wholesale;
// absent sections are left untouched. The snapshot's shape is the
// caller's responsibility: malformed content is written as-is, not
// repaired.
func (s *Store) Import(ctx context.Context, snap klogame.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if snap.ActiveEditionID != nil {
		if err := putDoc(ctx, tx, "documents", docActiveEdition, activeEditionDoc{ID: *snap.ActiveEditionID}); err != nil {
			return fmt.Errorf("importing active edition: %w", err)
		}
	}

	if snap.Editions != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM editions`); err != nil {
			return err
		}
		for id, e := range snap.Editions {
			e.ID = id
			if err := putDoc(ctx, tx, "editions", id, e); err != nil {
				return fmt.Errorf("importing edition %s: %w", id, err)
			}
		}
	}

	if snap.Visits != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM visits`); err != nil {
			return err
		}
		for _, rec := range snap.Visits {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO visits (id, edition_id, location_id, data) VALUES (?, ?, ?, jsonb(?))`,
				rec.ID, rec.EditionID, rec.LocationID, string(data),
			)
			if err != nil {
				return fmt.Errorf("importing visit %s: %w", rec.ID, err)
			}
		}
	}

	if snap.Stats != nil {
		if err := putDoc(ctx, tx, "documents", docStats, *snap.Stats); err != nil {
			return fmt.Errorf("importing stats: %w", err)
		}
	}

	if snap.Settings != nil {
		if err := putDoc(ctx, tx, "documents", docSettings, *snap.Settings); err != nil {
			return fmt.Errorf("importing settings: %w", err)
		}
	}

	return tx.Commit()
}
