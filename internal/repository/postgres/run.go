package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RMahshie/effsweep/internal/repository"
	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/google/uuid"
)

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository creates a new PostgreSQL run repository
func NewPostgresRunRepository(db *sql.DB) repository.RunRepository {
	return &PostgresRunRepository{db: db}
}

// Create inserts a new run record
func (r *PostgresRunRepository) Create(ctx context.Context, run *models.Run) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep config: %w", err)
	}

	query := `
		INSERT INTO runs (id, status, config, output_path, point_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.Status,
		string(cfg),
		run.OutputPath,
		run.PointCount,
		run.CreatedAt,
		run.UpdatedAt)

	return err
}

const runColumns = `id, status, config, output_path, object_key, point_count, error_message, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var cfg string
	var objectKey, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.Status,
		&cfg,
		&run.OutputPath,
		&objectKey,
		&run.PointCount,
		&errorMsg,
		&run.CreatedAt,
		&run.UpdatedAt,
		&completedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cfg), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sweep config: %w", err)
	}
	if objectKey.Valid {
		run.ObjectKey = &objectKey.String
	}
	if errorMsg.Valid {
		run.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// GetByID retrieves a run by ID
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return run, err
}

// List retrieves the most recent runs
func (r *PostgresRunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateStatus updates the status of a run
func (r *PostgresRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE runs
		SET status = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

// UpdateError records a terminal failure status, its reason, and whatever
// partial workbook was kept
func (r *PostgresRunRepository) UpdateError(ctx context.Context, id uuid.UUID, status string, errorMsg string, pointCount int, objectKey *string) error {
	query := `
		UPDATE runs
		SET status = $1, error_message = $2, point_count = $3, object_key = $4,
		    updated_at = NOW()
		WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query, status, errorMsg, pointCount, objectKey, id)
	return err
}

// Complete marks a run completed
func (r *PostgresRunRepository) Complete(ctx context.Context, id uuid.UUID, pointCount int, objectKey *string) error {
	query := `
		UPDATE runs
		SET status = 'completed', point_count = $1, object_key = $2,
		    updated_at = NOW(), completed_at = NOW()
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, pointCount, objectKey, id)
	return err
}

// AppendPoint stores one sweep point at its acquisition index
func (r *PostgresRunRepository) AppendPoint(ctx context.Context, runID uuid.UUID, index int, p models.SweepPoint) error {
	query := `
		INSERT INTO sweep_points (run_id, idx, setpoint, vin, iin, vout, iout, efficiency, power_loss)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		runID, index, p.Setpoint, p.Vin, p.Iin, p.Vout, p.Iout, p.Efficiency, p.PowerLoss)
	return err
}

// GetPoints retrieves the points of a run in acquisition order
func (r *PostgresRunRepository) GetPoints(ctx context.Context, runID uuid.UUID) ([]models.SweepPoint, error) {
	query := `
		SELECT setpoint, vin, iin, vout, iout, efficiency, power_loss
		FROM sweep_points
		WHERE run_id = $1
		ORDER BY idx`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []models.SweepPoint{}
	for rows.Next() {
		var p models.SweepPoint
		if err := rows.Scan(&p.Setpoint, &p.Vin, &p.Iin, &p.Vout, &p.Iout, &p.Efficiency, &p.PowerLoss); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
