// Package game implements the check-in core: the durable visit ledger
// with its aggregated stats, the persisted settings, the cached
// editions, the visit eligibility rules, and the session controller
// that ties them together for the presentation layer.
package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when a document or edition does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyVisited is returned by RecordVisit when a record for the
	// (edition, location) pair already exists. The unique index enforces
	// this at commit time, so two racing attempts cannot both win.
	ErrAlreadyVisited = errors.New("location already visited")
)

// Singleton document IDs in the documents table.
const (
	docSettings      = "settings"
	docStats         = "stats"
	docActiveEdition = "active_edition"
)

// Store owns all durable local state: the append-only visit log, the
// cached stats projection, settings, cached editions, and the active
// edition pointer. Everything is stored as JSONB documents; visits get
// their own table so a unique index can guard the one-visit-per-location
// invariant.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// Serializes settings read-correct-write cycles so the hardcore
	// ratchet holds under concurrent saves.
	settingsMu sync.Mutex
}

func NewStore(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Store, error) {
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS editions (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS visits (
			id          TEXT PRIMARY KEY,
			edition_id  TEXT NOT NULL,
			location_id TEXT NOT NULL,
			data        JSONB NOT NULL,
			UNIQUE (edition_id, location_id)
		)`,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getDoc(ctx context.Context, q querier, table, id string, dest any) error {
	var data string
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func putDoc(ctx context.Context, q querier, table, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, data) VALUES (?, jsonb(?))`, table),
		id, string(data),
	)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Clear wipes every table. Used by the backup DELETE endpoint; there is
// no partial delete anywhere else, visit records are append-only.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"visits", "editions", "documents"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}
