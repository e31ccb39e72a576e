package api

import (
	"net/http"

	"github.com/RMahshie/effsweep/internal/api/handlers"
	"github.com/RMahshie/effsweep/internal/repository"
	"github.com/RMahshie/effsweep/internal/storage"
	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes sets up all API routes. store may be nil.
func RegisterRoutes(api huma.API, runRepo repository.RunRepository, store storage.ObjectStore) {
	// Initialize handlers
	runHandler := handlers.NewRunHandler(runRepo, store)

	// Register run routes
	huma.Register(api, huma.Operation{
		OperationID: "listRuns",
		Method:      http.MethodGet,
		Path:        "/api/runs",
		Summary:     "List sweep runs",
		Description: "Returns the most recent efficiency sweep runs, newest first",
		Tags:        []string{"Runs"},
	}, runHandler.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "getRun",
		Method:      http.MethodGet,
		Path:        "/api/runs/{id}",
		Summary:     "Get sweep run",
		Description: "Returns the status and parameters of a sweep run",
		Tags:        []string{"Runs"},
	}, runHandler.GetRun)

	huma.Register(api, huma.Operation{
		OperationID: "getRunPoints",
		Method:      http.MethodGet,
		Path:        "/api/runs/{id}/points",
		Summary:     "Get sweep points",
		Description: "Returns every recorded point of a sweep run in acquisition order",
		Tags:        []string{"Runs"},
	}, runHandler.GetRunPoints)

	huma.Register(api, huma.Operation{
		OperationID: "getRunDownload",
		Method:      http.MethodGet,
		Path:        "/api/runs/{id}/download",
		Summary:     "Download workbook",
		Description: "Returns a pre-signed URL for the archived efficiency workbook",
		Tags:        []string{"Runs"},
	}, runHandler.GetRunDownload)
}
