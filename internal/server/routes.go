package server

import (
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/devdvd/klogame-client/internal/catalog"
	"github.com/devdvd/klogame-client/internal/game"
)

// Deps carries everything the routes need.
type Deps struct {
	Session *game.Session
	Store   *game.Store
	Catalog *catalog.Client
	DB      *sql.DB
	// PositionTimeout bounds how long a single range check may wait for
	// a position fix.
	PositionTimeout time.Duration
	SPADir          string
}

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("KloGame API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, deps.DB, deps.Catalog))

	r.Route("/api", func(r chi.Router) {
		r.Get("/editions", handleListEditions(deps.Session))
		r.Post("/editions/{id}/activate", handleActivateEdition(deps.Session, broker))
		r.Get("/game/state", handleGameState(deps.Session, deps.Store))

		r.Post("/locations/{id}/eligibility", handleEligibility(deps.Session, deps.PositionTimeout))
		r.Post("/visits", handleVisit(deps.Session, deps.PositionTimeout, broker))

		r.Get("/stats", handleStats(deps.Store))
		r.Post("/stats/recompute", handleRecomputeStats(deps.Store))

		r.Get("/settings", handleGetSettings(deps.Store))
		r.Put("/settings", handleSaveSettings(deps.Store, broker))

		r.Get("/backup", handleExport(deps.Store))
		r.Post("/backup", handleImport(deps.Store, deps.Session))
		r.Delete("/backup", handleClear(deps.Store, deps.Session, broker))

		r.Get("/events", handleEvents(broker))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
