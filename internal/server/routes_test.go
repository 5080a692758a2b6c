package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/devdvd/klogame-client/internal/catalog"
	"github.com/devdvd/klogame-client/internal/database"
	"github.com/devdvd/klogame-client/internal/game"
	"github.com/devdvd/klogame-client/internal/klogame"
)

func testEdition() klogame.Edition {
	return klogame.Edition{
		EditionMetadata: klogame.EditionMetadata{
			ID:             "bundesliga",
			Name:           "Bundesliga Edition",
			Type:           klogame.EditionFree,
			Version:        "1.0.0",
			LocationsCount: 2,
		},
		Locations: []klogame.Location{
			{
				ID:          "allianz-arena",
				Name:        "Allianz Arena",
				Coordinates: klogame.Coordinates{48.2188, 11.6247},
				Points:      klogame.Points{Pee: 5, Poop: 10},
			},
			{
				ID:          "olympiastadion",
				Name:        "Olympiastadion",
				Coordinates: klogame.Coordinates{48.1731, 11.5461},
				Points:      klogame.Points{Pee: 3, Poop: 7},
			},
		},
	}
}

// catalogServer fakes the companion edition server.
func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	edition := testEdition()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/editions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"editions": []klogame.EditionMetadata{edition.EditionMetadata},
		})
	})
	mux.HandleFunc("GET /api/editions/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != edition.ID {
			writeError(w, http.StatusNotFound, "edition not found")
			return
		}
		writeJSON(w, http.StatusOK, edition)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := game.NewStore(ctx, db, logger)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}

	cat := catalog.NewClient(catalogServer(t).URL)
	sess := game.NewSession(store, cat, nil, logger)

	r := chi.NewRouter()
	addRoutes(r, logger, Deps{
		Session: sess,
		Store:   store,
		Catalog: cat,
		DB:      db,
	})
	return r
}

func do(t *testing.T, r *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func activate(t *testing.T, r *chi.Mux) {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/editions/bundesliga/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListEditions(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/editions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp EditionsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Editions) != 1 {
		t.Fatalf("expected 1 edition, got %d", len(resp.Editions))
	}
	if resp.Editions[0].Cached || resp.Editions[0].Active {
		t.Errorf("fresh edition should be neither cached nor active: %+v", resp.Editions[0])
	}

	activate(t, r)

	w = do(t, r, http.MethodGet, "/api/editions", nil)
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Editions[0].Cached || !resp.Editions[0].Active {
		t.Errorf("activated edition should be cached and active: %+v", resp.Editions[0])
	}
}

func TestGameState(t *testing.T) {
	r := newTestRouter(t)

	// Before activation: stats only.
	w := do(t, r, http.MethodGet, "/api/game/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var state GameStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if state.Edition != nil {
		t.Error("expected no edition before activation")
	}

	activate(t, r)

	w = do(t, r, http.MethodGet, "/api/game/state", nil)
	json.NewDecoder(w.Body).Decode(&state)
	if state.Edition == nil || state.Edition.ID != "bundesliga" {
		t.Fatalf("expected active edition bundesliga, got %+v", state.Edition)
	}
	if state.Progress == nil || state.Progress.Total != 2 || state.Progress.Visited != 0 {
		t.Errorf("expected progress 0/2, got %+v", state.Progress)
	}
}

func TestVisitFlow(t *testing.T) {
	r := newTestRouter(t)
	activate(t, r)

	// Kacken at the arena: superset scoring, 5+10 points.
	w := do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPoop,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var rec klogame.VisitRecord
	json.NewDecoder(w.Body).Decode(&rec)
	if rec.Points != 15 {
		t.Errorf("expected 15 points, got %d", rec.Points)
	}
	if rec.ID == "" || rec.Timestamp.IsZero() {
		t.Errorf("expected id and timestamp to be set: %+v", rec)
	}

	// Second attempt at the same location is rejected for good.
	w = do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPee,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var denied VisitDeniedResponse
	json.NewDecoder(w.Body).Decode(&denied)
	if denied.Reason != game.ReasonAlreadyComplete {
		t.Errorf("expected reason already_complete, got %q", denied.Reason)
	}

	// Stats reflect exactly one visit.
	w = do(t, r, http.MethodGet, "/api/stats", nil)
	var stats klogame.Stats
	json.NewDecoder(w.Body).Decode(&stats)
	want := klogame.Stats{TotalPoints: 15, TotalVisits: 1, PoopCount: 1, LocationsCount: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestVisitValidation(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPee,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("no active edition: expected 409, got %d", w.Code)
	}

	activate(t, r)

	w = do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       "schwimmen",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad type: expected 400, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "hofbraeuhaus",
		Type:       klogame.VisitPee,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown location: expected 404, got %d", w.Code)
	}
}

func TestVisitGeoGating(t *testing.T) {
	r := newTestRouter(t)
	activate(t, r)

	w := do(t, r, http.MethodPut, "/api/settings", klogame.Settings{
		GeoMode:     true,
		MaxDistance: 100,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save settings: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// No position at all.
	w = do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPee,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var denied VisitDeniedResponse
	json.NewDecoder(w.Body).Decode(&denied)
	if denied.Reason != game.ReasonPositionUnavailable {
		t.Errorf("expected position_unavailable, got %q", denied.Reason)
	}

	// Roughly 500m south of the arena.
	w = do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPee,
		Position:   &RequestPosition{Latitude: 48.2143, Longitude: 11.6247},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&denied)
	if denied.Reason != game.ReasonOutOfRange {
		t.Errorf("expected out_of_range, got %q", denied.Reason)
	}
	if denied.Distance == nil || *denied.Distance < 400 || *denied.Distance > 600 {
		t.Errorf("expected distance near 500m, got %v", denied.Distance)
	}
	if denied.DistanceDisplay == "" {
		t.Error("expected a formatted distance")
	}

	// At the arena.
	w = do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPee,
		Position:   &RequestPosition{Latitude: 48.2188, Longitude: 11.6247, Accuracy: 10},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestEligibility(t *testing.T) {
	r := newTestRouter(t)
	activate(t, r)

	// Empty body is fine while geo mode is off.
	w := do(t, r, http.MethodPost, "/api/locations/allianz-arena/eligibility", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp EligibilityResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Allowed || resp.Reason != game.ReasonEligible {
		t.Errorf("expected eligible, got %+v", resp)
	}
	if resp.Location.Name != "Allianz Arena" {
		t.Errorf("expected location payload, got %+v", resp.Location)
	}
	if len(resp.Visits) != 0 {
		t.Errorf("expected empty history, got %d", len(resp.Visits))
	}

	do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPee,
	})

	w = do(t, r, http.MethodPost, "/api/locations/allianz-arena/eligibility", nil)
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Allowed || resp.Reason != game.ReasonAlreadyComplete {
		t.Errorf("expected already_complete, got %+v", resp)
	}
	if len(resp.Visits) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(resp.Visits))
	}

	w = do(t, r, http.MethodPost, "/api/locations/nirgendwo/eligibility", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown location: expected 404, got %d", w.Code)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/settings", nil)
	var settings klogame.Settings
	json.NewDecoder(w.Body).Decode(&settings)
	if settings != klogame.DefaultSettings() {
		t.Errorf("expected defaults, got %+v", settings)
	}

	// Hardcore forces geo mode on.
	w = do(t, r, http.MethodPut, "/api/settings", klogame.Settings{
		HardcoreMode: true,
		MaxDistance:  50,
	})
	json.NewDecoder(w.Body).Decode(&settings)
	if !settings.GeoMode || !settings.HardcoreMode {
		t.Errorf("expected hardcore+geo, got %+v", settings)
	}

	// The ratchet: hardcore cannot be switched back off.
	w = do(t, r, http.MethodPut, "/api/settings", klogame.Settings{
		HardcoreMode: false,
		MaxDistance:  50,
	})
	json.NewDecoder(w.Body).Decode(&settings)
	if !settings.HardcoreMode {
		t.Error("hardcore mode must stay on")
	}

	w = do(t, r, http.MethodPut, "/api/settings", klogame.Settings{MaxDistance: 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero maxDistance: expected 400, got %d", w.Code)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	activate(t, r)
	do(t, r, http.MethodPost, "/api/visits", VisitRequest{
		LocationID: "allianz-arena",
		Type:       klogame.VisitPoop,
	})

	// Export.
	w := do(t, r, http.MethodGet, "/api/backup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", w.Code)
	}
	var snap klogame.Snapshot
	json.NewDecoder(w.Body).Decode(&snap)
	if len(snap.Visits) != 1 {
		t.Fatalf("export: expected 1 visit, got %d", len(snap.Visits))
	}

	// Clear everything.
	w = do(t, r, http.MethodDelete, "/api/backup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/stats", nil)
	var stats klogame.Stats
	json.NewDecoder(w.Body).Decode(&stats)
	if stats != (klogame.Stats{}) {
		t.Errorf("after clear: expected zero stats, got %+v", stats)
	}

	// Import the snapshot back.
	w = do(t, r, http.MethodPost, "/api/backup", snap)
	if w.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/stats", nil)
	json.NewDecoder(w.Body).Decode(&stats)
	if stats.TotalPoints != 15 || stats.TotalVisits != 1 {
		t.Errorf("after import: stats = %+v", stats)
	}

	var state GameStateResponse
	w = do(t, r, http.MethodGet, "/api/game/state", nil)
	json.NewDecoder(w.Body).Decode(&state)
	if state.Edition == nil || state.Edition.ID != "bundesliga" {
		t.Errorf("after import: expected active edition restored, got %+v", state.Edition)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var checks HealthResponse
	json.NewDecoder(w.Body).Decode(&checks)
	if checks["sqlite"].Status != "ok" || checks["catalog"].Status != "ok" {
		t.Errorf("expected all checks ok, got %+v", checks)
	}
}
