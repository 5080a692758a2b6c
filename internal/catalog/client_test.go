package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devdvd/klogame-client/internal/klogame"
)

func testServer(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/editions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"editions": []klogame.EditionMetadata{
				{ID: "bundesliga", Name: "Bundesliga Edition", Type: klogame.EditionFree},
				{ID: "oktoberfest", Name: "Oktoberfest Edition", Type: klogame.EditionSeasonal},
			},
		})
	})
	mux.HandleFunc("GET /api/editions/bundesliga/download", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(klogame.Edition{
			EditionMetadata: klogame.EditionMetadata{ID: "bundesliga", Name: "Bundesliga Edition"},
			Locations: []klogame.Location{
				{ID: "allianz-arena", Name: "Allianz Arena", Points: klogame.Points{Pee: 5, Poop: 10}},
			},
		})
	})
	mux.HandleFunc("GET /api/editions/oktoberfest/download", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "edition is locked"})
	})
	mux.HandleFunc("GET /api/editions/bundesliga", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(klogame.EditionMetadata{
			ID: "bundesliga", Name: "Bundesliga Edition", LocationsCount: 12,
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestListEditions(t *testing.T) {
	c := testServer(t)

	metas, err := c.ListEditions(context.Background())
	if err != nil {
		t.Fatalf("ListEditions: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 editions, got %d", len(metas))
	}
	if metas[0].ID != "bundesliga" || metas[1].Type != klogame.EditionSeasonal {
		t.Errorf("unexpected metadata: %+v", metas)
	}
}

func TestEditionDetails(t *testing.T) {
	c := testServer(t)

	meta, err := c.EditionDetails(context.Background(), "bundesliga")
	if err != nil {
		t.Fatalf("EditionDetails: %v", err)
	}
	if meta.LocationsCount != 12 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestDownloadEdition(t *testing.T) {
	c := testServer(t)

	e, err := c.DownloadEdition(context.Background(), "bundesliga")
	if err != nil {
		t.Fatalf("DownloadEdition: %v", err)
	}
	if len(e.Locations) != 1 || e.Locations[0].ID != "allianz-arena" {
		t.Errorf("unexpected edition: %+v", e)
	}
}

func TestDownloadEditionErrorBody(t *testing.T) {
	c := testServer(t)

	_, err := c.DownloadEdition(context.Background(), "oktoberfest")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "edition is locked") {
		t.Errorf("expected the server's error message, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	c := testServer(t)

	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	down := NewClient("http://localhost:0")
	if err := down.Health(context.Background()); err == nil {
		t.Error("expected an error for an unreachable server")
	}
}
