package game

import (
	"context"
	"errors"

	"github.com/devdvd/klogame-client/internal/klogame"
)

// Settings returns the persisted settings, or the documented defaults
// when nothing has been saved yet.
func (s *Store) Settings(ctx context.Context) (klogame.Settings, error) {
	var settings klogame.Settings
	err := getDoc(ctx, s.db, "documents", docSettings, &settings)
	if errors.Is(err, ErrNotFound) {
		return klogame.DefaultSettings(), nil
	}
	if err != nil {
		return klogame.DefaultSettings(), err
	}
	return settings, nil
}

// SaveSettings persists next after enforcing the invariants:
//
//   - hardcore mode is a one-way ratchet: if it is currently on, a
//     write turning it off is silently corrected, not rejected;
//   - hardcore mode force-enables geo mode.
//
// The returned settings are what was actually written.
func (s *Store) SaveSettings(ctx context.Context, next klogame.Settings) (klogame.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	current, err := s.Settings(ctx)
	if err != nil {
		return klogame.Settings{}, err
	}

	if current.HardcoreMode {
		next.HardcoreMode = true
	}
	if next.HardcoreMode {
		next.GeoMode = true
	}

	if err := putDoc(ctx, s.db, "documents", docSettings, next); err != nil {
		return klogame.Settings{}, err
	}
	return next, nil
}
