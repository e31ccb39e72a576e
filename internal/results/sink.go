package results

import (
	"context"

	"github.com/RMahshie/effsweep/internal/repository"
	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/google/uuid"
)

// Sink receives sweep points in acquisition order
type Sink interface {
	Append(ctx context.Context, p models.SweepPoint) error
	Close() error
}

type tee []Sink

// Tee appends to every sink in order, stopping at the first error. Close
// closes all of them and returns the first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Append(ctx context.Context, p models.SweepPoint) error {
	for _, s := range t {
		if err := s.Append(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Close() error {
	var first error
	for _, s := range t {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RepositorySink mirrors points into the run repository
type RepositorySink struct {
	repo  repository.RunRepository
	runID uuid.UUID
	next  int
}

// NewRepositorySink creates a sink writing points of runID
func NewRepositorySink(repo repository.RunRepository, runID uuid.UUID) *RepositorySink {
	return &RepositorySink{repo: repo, runID: runID}
}

func (s *RepositorySink) Append(ctx context.Context, p models.SweepPoint) error {
	if err := s.repo.AppendPoint(ctx, s.runID, s.next, p); err != nil {
		return err
	}
	s.next++
	return nil
}

func (s *RepositorySink) Close() error { return nil }
