package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// RunRepository defines the interface for sweep run data operations
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error)
	List(ctx context.Context, limit int) ([]*models.Run, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, status string, errorMsg string, pointCount int, objectKey *string) error
	Complete(ctx context.Context, id uuid.UUID, pointCount int, objectKey *string) error
	AppendPoint(ctx context.Context, runID uuid.UUID, index int, point models.SweepPoint) error
	GetPoints(ctx context.Context, runID uuid.UUID) ([]models.SweepPoint, error)
}
