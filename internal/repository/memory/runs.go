package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

func (s *Store) StartRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	key := weekStart.Format(time.DateOnly)
	run, ok := s.runs[key]
	if !ok {
		run = &models.DistributionRun{ID: uuid.New(), WeekStart: weekStart}
		s.runs[key] = run
	}
	run.Status = models.RunStatusRunning
	run.Attempts++
	run.StartedAt = s.now()
	run.FinishedAt = nil

	out := *run
	return &out, nil
}

func (s *Store) FinishRun(ctx context.Context, run *models.DistributionRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	stored, ok := s.runs[run.WeekStart.Format(time.DateOnly)]
	if !ok || stored.ID != run.ID {
		return repository.ErrRunNotFound
	}
	stored.Status = run.Status
	stored.Ranked = run.Ranked
	stored.Distributed = run.Distributed
	stored.AlreadyCredited = run.AlreadyCredited
	stored.Failed = run.Failed
	stored.FinishedAt = run.FinishedAt
	return nil
}

func (s *Store) GetRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run, ok := s.runs[weekStart.Format(time.DateOnly)]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	out := *run
	return &out, nil
}
