package measurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RMahshie/effsweep/internal/bench"
	"github.com/RMahshie/effsweep/internal/repository"
	"github.com/RMahshie/effsweep/internal/results"
	"github.com/RMahshie/effsweep/internal/storage"
	"github.com/RMahshie/effsweep/internal/sweep"
	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type MeasurementService interface {
	Execute(ctx context.Context, cfg models.SweepConfig) (*models.Run, error)
}

// Options configures a measurement service. Repository and Store are optional.
type Options struct {
	Opener     bench.Opener
	Profiles   bench.Profiles
	Shunts     models.Shunts
	OutputDir  string
	Repository repository.RunRepository
	Store      storage.ObjectStore

	// Sleep overrides the sweep's settle/recovery wait (tests)
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

type measurementService struct {
	opts Options
}

func NewMeasurementService(opts Options) MeasurementService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &measurementService{opts: opts}
}

// Execute runs one efficiency sweep end to end. Instruments are always shut
// down and the workbook always saved before it returns, whatever the outcome.
func (s *measurementService) Execute(ctx context.Context, cfg models.SweepConfig) (*models.Run, error) {
	// Step 1: Reject a sweep that could never terminate before touching hardware
	if _, err := sweep.Setpoints(cfg.Min, cfg.Max, cfg.Step); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	runID := uuid.New()
	run := &models.Run{
		ID:         runID.String(),
		Status:     models.RunPending,
		Config:     cfg,
		OutputPath: results.OutputPath(s.opts.OutputDir, now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	logger := log.With().Str("runID", run.ID).Logger()

	// Step 2: Record the run
	if s.opts.Repository != nil {
		if err := s.opts.Repository.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create run record: %w", err)
		}
	}

	// Step 3: Sweep with guaranteed teardown
	count, sweepErr := s.sweep(ctx, run, runID)
	run.PointCount = count

	// Step 4: Archive whatever was written, even for a partial run
	final := context.WithoutCancel(ctx)
	if s.opts.Store != nil {
		key := storage.WorkbookKey(run.ID, run.OutputPath)
		if err := s.opts.Store.UploadFile(final, key, run.OutputPath); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("Workbook upload failed")
		} else {
			run.ObjectKey = &key
			logger.Info().Str("key", key).Msg("Workbook uploaded")
		}
	}

	// Step 5: Finalise status
	s.finish(final, run, runID, sweepErr)
	if sweepErr != nil {
		logger.Error().Err(sweepErr).Int("points", count).Str("status", run.Status).Msg("Sweep ended early")
		return run, sweepErr
	}

	logger.Info().Int("points", count).Str("path", run.OutputPath).Msg("Sweep complete")
	return run, nil
}

func (s *measurementService) sweep(ctx context.Context, run *models.Run, runID uuid.UUID) (count int, err error) {
	wb, err := results.NewWorkbook(run.OutputPath)
	if err != nil {
		return 0, err
	}
	log.Info().Str("path", wb.Path()).Msg("Workbook created")

	var sink results.Sink = wb
	if s.opts.Repository != nil {
		sink = results.Tee(wb, results.NewRepositorySink(s.opts.Repository, runID))
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			log.Error().Err(cerr).Str("path", wb.Path()).Msg("Failed to save workbook")
			if err == nil {
				err = cerr
			}
		}
		// Rows on disk, including one whose repository insert then failed
		count = wb.Rows()
	}()

	b, err := bench.Open(ctx, s.opts.Opener, s.opts.Profiles)
	if err != nil {
		return 0, err
	}
	defer b.Teardown()

	if s.opts.Repository != nil {
		if err := s.opts.Repository.UpdateStatus(ctx, runID, models.RunRunning); err != nil {
			return 0, fmt.Errorf("failed to update run status: %w", err)
		}
	}
	run.Status = models.RunRunning

	if err := b.ApplySupplies(run.Config); err != nil {
		return 0, err
	}

	driver := sweep.NewDriver(b, b, s.opts.Shunts)
	if s.opts.Sleep != nil {
		driver.Sleep = s.opts.Sleep
	}
	driver.OnState = func(st sweep.State, setpoint float64) {
		log.Debug().Str("state", st.String()).Float64("setpoint", setpoint).Msg("Sweep state")
	}

	return driver.Run(ctx, run.Config, sink)
}

func (s *measurementService) finish(ctx context.Context, run *models.Run, runID uuid.UUID, sweepErr error) {
	now := s.opts.Now()
	run.UpdatedAt = now

	if sweepErr == nil {
		run.Status = models.RunCompleted
		run.CompletedAt = &now
		if s.opts.Repository != nil {
			if err := s.opts.Repository.Complete(ctx, runID, run.PointCount, run.ObjectKey); err != nil {
				log.Error().Err(err).Msg("Failed to mark run completed")
			}
		}
		return
	}

	run.Status = models.RunFailed
	if errors.Is(sweepErr, context.Canceled) {
		run.Status = models.RunInterrupted
	}
	msg := sweepErr.Error()
	run.ErrorMsg = &msg
	if s.opts.Repository != nil {
		if err := s.opts.Repository.UpdateError(ctx, runID, run.Status, msg, run.PointCount, run.ObjectKey); err != nil {
			log.Error().Err(err).Msg("Failed to record run failure")
		}
	}
}
