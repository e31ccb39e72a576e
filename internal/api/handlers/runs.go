package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/RMahshie/effsweep/internal/repository"
	"github.com/RMahshie/effsweep/internal/storage"
	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunHandler serves recorded sweep runs
type RunHandler struct {
	repo  repository.RunRepository
	store storage.ObjectStore
}

// NewRunHandler creates a new run handler. store may be nil when archiving is disabled.
func NewRunHandler(repo repository.RunRepository, store storage.ObjectStore) *RunHandler {
	return &RunHandler{
		repo:  repo,
		store: store,
	}
}

// ListRuns returns the most recent runs
func (h *RunHandler) ListRuns(ctx context.Context, req *models.ListRunsRequest) (*models.ListRunsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	runs, err := h.repo.List(ctx, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list runs", err)
	}

	resp := &models.ListRunsResponse{}
	resp.Body.Runs = make([]models.RunSummary, 0, len(runs))
	for _, run := range runs {
		resp.Body.Runs = append(resp.Body.Runs, summarize(run))
	}

	log.Info().Int("count", len(runs)).Msg("Returning run list")
	return resp, nil
}

// GetRun returns one run
func (h *RunHandler) GetRun(ctx context.Context, req *models.GetRunRequest) (*models.GetRunResponse, error) {
	run, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &models.GetRunResponse{Body: summarize(run)}, nil
}

// GetRunPoints returns the recorded points of a run
func (h *RunHandler) GetRunPoints(ctx context.Context, req *models.GetRunPointsRequest) (*models.GetRunPointsResponse, error) {
	run, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	runID := uuid.MustParse(run.ID)
	points, err := h.repo.GetPoints(ctx, runID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get points", err)
	}

	return &models.GetRunPointsResponse{
		Body: models.GetRunPointsResponseBody{
			ID:     run.ID,
			Points: points,
		},
	}, nil
}

// GetRunDownload returns a pre-signed link to the archived workbook
func (h *RunHandler) GetRunDownload(ctx context.Context, req *models.GetRunDownloadRequest) (*models.GetRunDownloadResponse, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("Workbook archive is not configured")
	}

	run, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if run.ObjectKey == nil {
		return nil, huma.Error409Conflict("Workbook not archived",
			fmt.Errorf("run status is %s", run.Status))
	}

	url, err := h.store.GenerateDownloadURL(ctx, *run.ObjectKey)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to prepare download", err)
	}

	log.Info().Str("runID", run.ID).Str("key", *run.ObjectKey).Msg("Download URL generated")
	resp := &models.GetRunDownloadResponse{}
	resp.Body.URL = url
	resp.Body.ExpiresIn = int(storage.DownloadURLExpiry.Seconds())
	return resp, nil
}

func (h *RunHandler) lookup(ctx context.Context, id string) (*models.Run, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid run ID", err)
	}

	run, err := h.repo.GetByID(ctx, runID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error404NotFound("Run not found", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get run", err)
	}
	return run, nil
}

func summarize(run *models.Run) models.RunSummary {
	return models.RunSummary{
		ID:          run.ID,
		Status:      run.Status,
		Config:      run.Config,
		PointCount:  run.PointCount,
		Message:     statusMessage(run.Status),
		Error:       run.ErrorMsg,
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt,
	}
}

// statusMessage creates a human-readable status message
func statusMessage(status string) string {
	switch status {
	case models.RunPending:
		return "Waiting for instruments..."
	case models.RunRunning:
		return "Sweep in progress..."
	case models.RunCompleted:
		return "Sweep complete"
	case models.RunFailed:
		return "Sweep failed; partial data was kept"
	case models.RunInterrupted:
		return "Sweep interrupted; partial data was kept"
	default:
		return "Unknown status"
	}
}
