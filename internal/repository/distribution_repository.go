package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var ErrRunNotFound = errors.New("distribution run not found")

type DistributionRepository struct {
	db    *sqlx.DB
	retry common.Retryer
}

func NewDistributionRepository(db *sqlx.DB) *DistributionRepository {
	return &DistributionRepository{db: db, retry: common.DefaultRetryer}
}

func (r *DistributionRepository) WithRetryer(retry common.Retryer) *DistributionRepository {
	r.retry = retry
	return r
}

// StartRun регистрирует запуск за неделю. Повторный запуск увеличивает attempts.
func (r *DistributionRepository) StartRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error) {
	var run models.DistributionRun
	err := r.db.GetContext(ctx, &run, `
		INSERT INTO distribution_runs (id, week_start, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (week_start) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = distribution_runs.attempts + 1,
			started_at = NOW(),
			finished_at = NULL
		RETURNING *
	`, uuid.New(), weekStart.Format(time.DateOnly), models.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("distribution repository: start run %w", err)
	}
	return &run, nil
}

// FinishRun сохраняет итоговые счётчики запуска.
func (r *DistributionRepository) FinishRun(ctx context.Context, run *models.DistributionRun) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE distribution_runs SET
			status = $2, ranked = $3, distributed = $4, already_credited = $5, failed = $6, finished_at = $7
		WHERE id = $1
	`, run.ID, run.Status, run.Ranked, run.Distributed, run.AlreadyCredited, run.Failed, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("distribution repository: finish run %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("distribution repository: finish run %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *DistributionRepository) GetRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error) {
	var run *models.DistributionRun
	err := r.retry.Do(ctx, "distribution.get_run", func() error {
		var err error
		run, err = common.GetByField[models.DistributionRun](ctx, r.db, "distribution_runs", "week_start", weekStart.Format(time.DateOnly), ErrRunNotFound)
		return err
	}, ErrRunNotFound)
	if err != nil {
		return nil, err
	}
	return run, nil
}
