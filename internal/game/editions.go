package game

import (
	"context"
	"encoding/json"

	"github.com/devdvd/klogame-client/internal/klogame"
)

// activeEditionDoc is the persisted active-edition pointer.
type activeEditionDoc struct {
	ID string `json:"id"`
}

// SaveEdition caches a downloaded edition, replacing any previous copy
// wholesale. Editions are versioned snapshots, never patched in place.
func (s *Store) SaveEdition(ctx context.Context, e klogame.Edition) error {
	return putDoc(ctx, s.db, "editions", e.ID, e)
}

// Edition returns the cached edition by id, or ErrNotFound.
func (s *Store) Edition(ctx context.Context, id string) (klogame.Edition, error) {
	var e klogame.Edition
	err := getDoc(ctx, s.db, "editions", id, &e)
	return e, err
}

// Editions returns all cached editions keyed by id.
func (s *Store) Editions(ctx context.Context) (map[string]klogame.Edition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json(data) FROM editions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	editions := make(map[string]klogame.Edition)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e klogame.Edition
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, err
		}
		editions[e.ID] = e
	}
	return editions, rows.Err()
}

// SetActiveEdition persists the active-edition pointer so the selection
// survives a restart.
func (s *Store) SetActiveEdition(ctx context.Context, id string) error {
	return putDoc(ctx, s.db, "documents", docActiveEdition, activeEditionDoc{ID: id})
}

// ActiveEditionID returns the persisted pointer, or ErrNotFound when no
// edition has been activated.
func (s *Store) ActiveEditionID(ctx context.Context) (string, error) {
	var doc activeEditionDoc
	if err := getDoc(ctx, s.db, "documents", docActiveEdition, &doc); err != nil {
		return "", err
	}
	if doc.ID == "" {
		return "", ErrNotFound
	}
	return doc.ID, nil
}

// ClearActiveEdition drops the pointer (no selection).
func (s *Store) ClearActiveEdition(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docActiveEdition)
	return err
}
