package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/devdvd/klogame-client/internal/klogame"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "KloGame API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Local API for the KloGame check-in game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the local database and the edition catalog.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/editions
	getEditions, _ := r.NewOperationContext(http.MethodGet, "/api/editions")
	getEditions.SetSummary("List editions")
	getEditions.SetDescription("Lists catalog editions annotated with which are downloaded and which is active.")
	getEditions.AddRespStructure(EditionsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getEditions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(getEditions)

	// POST /api/editions/{id}/activate
	activateEdition, _ := r.NewOperationContext(http.MethodPost, "/api/editions/{id}/activate")
	activateEdition.SetSummary("Activate edition")
	activateEdition.SetDescription("Downloads the edition if not cached and makes it the active one.")
	activateEdition.AddRespStructure(klogame.Edition{}, openapi.WithHTTPStatus(http.StatusOK))
	activateEdition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(activateEdition)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the active edition, visit progress, and stats in one call.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// POST /api/locations/{id}/eligibility
	checkEligibility, _ := r.NewOperationContext(http.MethodPost, "/api/locations/{id}/eligibility")
	checkEligibility.SetSummary("Check location eligibility")
	checkEligibility.SetDescription("Dry-run check whether a visit at this location would be accepted. Does not record anything.")
	checkEligibility.AddReqStructure(EligibilityRequest{})
	checkEligibility.AddRespStructure(EligibilityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	checkEligibility.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	checkEligibility.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(checkEligibility)

	// POST /api/visits
	postVisit, _ := r.NewOperationContext(http.MethodPost, "/api/visits")
	postVisit.SetSummary("Record a visit")
	postVisit.SetDescription("Records a pinkeln or kacken visit at a location of the active edition.")
	postVisit.AddReqStructure(VisitRequest{})
	postVisit.AddRespStructure(klogame.VisitRecord{}, openapi.WithHTTPStatus(http.StatusCreated))
	postVisit.AddRespStructure(VisitDeniedResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postVisit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postVisit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postVisit)

	// GET /api/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/stats")
	getStats.SetSummary("Get stats")
	getStats.SetDescription("Returns the cached aggregate totals.")
	getStats.AddRespStructure(klogame.Stats{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getStats)

	// POST /api/stats/recompute
	recomputeStats, _ := r.NewOperationContext(http.MethodPost, "/api/stats/recompute")
	recomputeStats.SetSummary("Recompute stats")
	recomputeStats.SetDescription("Rebuilds the aggregate totals from the visit log.")
	recomputeStats.AddRespStructure(klogame.Stats{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(recomputeStats)

	// GET /api/settings
	getSettings, _ := r.NewOperationContext(http.MethodGet, "/api/settings")
	getSettings.SetSummary("Get settings")
	getSettings.AddRespStructure(klogame.Settings{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getSettings)

	// PUT /api/settings
	putSettings, _ := r.NewOperationContext(http.MethodPut, "/api/settings")
	putSettings.SetSummary("Save settings")
	putSettings.SetDescription("Saves game settings. Hardcore mode cannot be switched off and forces geo mode on.")
	putSettings.AddReqStructure(klogame.Settings{})
	putSettings.AddRespStructure(klogame.Settings{}, openapi.WithHTTPStatus(http.StatusOK))
	putSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(putSettings)

	// GET /api/backup
	getBackup, _ := r.NewOperationContext(http.MethodGet, "/api/backup")
	getBackup.SetSummary("Export backup")
	getBackup.SetDescription("Exports the full game state as a JSON snapshot.")
	getBackup.AddRespStructure(klogame.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getBackup)

	// POST /api/backup
	postBackup, _ := r.NewOperationContext(http.MethodPost, "/api/backup")
	postBackup.SetSummary("Import backup")
	postBackup.SetDescription("Restores a snapshot. Sections absent from the snapshot are left untouched.")
	postBackup.AddReqStructure(klogame.Snapshot{})
	postBackup.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postBackup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postBackup)

	// DELETE /api/backup
	deleteBackup, _ := r.NewOperationContext(http.MethodDelete, "/api/backup")
	deleteBackup.SetSummary("Clear all data")
	deleteBackup.SetDescription("Deletes every visit, cached edition, and stored document.")
	deleteBackup.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(deleteBackup)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream pushing game updates to the presentation layer.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
