package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/goroutine"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

type DistributionRepository interface {
	StartRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error)
	FinishRun(ctx context.Context, run *models.DistributionRun) error
	GetRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error)
}

type WindowRanker interface {
	RankWindow(ctx context.Context, window models.Window, activeOnly bool) ([]models.LeaderboardRow, error)
}

type RewardLedger interface {
	CreditReward(ctx context.Context, accountID uuid.UUID, amount int64, description, key string) (*models.LedgerResult, error)
	HasCredit(ctx context.Context, key string, accountID uuid.UUID, kind valueobject.EntryKind) (bool, error)
}

// DistributionService начисляет недельные бонусы лучшим участникам рейтинга.
type DistributionService struct {
	runs    DistributionRepository
	ranker  WindowRanker
	ledger  RewardLedger
	loc     *time.Location
	topN    int
	workers int
	now     func() time.Time
}

func NewDistributionService(runs DistributionRepository, ranker WindowRanker, ledger RewardLedger, loc *time.Location, topN, workers int) *DistributionService {
	if loc == nil {
		loc = time.UTC
	}
	if workers <= 0 {
		workers = 1
	}
	return &DistributionService{
		runs:    runs,
		ranker:  ranker,
		ledger:  ledger,
		loc:     loc,
		topN:    topN,
		workers: workers,
		now:     time.Now,
	}
}

// TierReward бонус за позицию в недельном рейтинге, 0 за пределами сотни.
func TierReward(rank int) int64 {
	switch {
	case rank >= 1 && rank <= 10:
		return 100
	case rank >= 11 && rank <= 25:
		return 75
	case rank >= 26 && rank <= 50:
		return 50
	case rank >= 51 && rank <= 100:
		return 25
	}
	return 0
}

// WeeklyRewardKey ключ идемпотентности бонуса аккаунта за неделю.
func WeeklyRewardKey(weekStart time.Time, accountID uuid.UUID) string {
	return validation.WeeklyRewardKeyPrefix + weekStart.Format(time.DateOnly) + ":" + accountID.String()
}

// PreviousWeekStart понедельник последней полностью завершённой недели.
func (s *DistributionService) PreviousWeekStart() time.Time {
	return WeekStart(s.now(), s.loc).AddDate(0, 0, -7)
}

// ParseWeekStart разбирает дату YYYY-MM-DD в часовом поясе сервиса.
func (s *DistributionService) ParseWeekStart(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, raw, s.loc)
	if err != nil {
		return time.Time{}, apperror.Validation("week_start", "ожидается дата в формате YYYY-MM-DD")
	}
	return t, nil
}

type creditOutcome struct {
	row      models.LeaderboardRow
	replayed bool
	err      error
}

// DistributeWeeklyRewards начисляет бонусы за неделю [weekStart, weekStart+7d).
// Каждое начисление идёт со своим ключом, поэтому повторный запуск не начисляет дважды.
// Ошибка по одному аккаунту не прерывает остальные и попадает в отчёт.
func (s *DistributionService) DistributeWeeklyRewards(ctx context.Context, weekStart time.Time) (*models.DistributionReport, error) {
	weekStart = weekStart.In(s.loc)
	if !WeekStart(weekStart, s.loc).Equal(weekStart) {
		return nil, apperror.Validation("week_start", "неделя должна начинаться с понедельника 00:00")
	}
	window := models.Window{From: weekStart, To: weekStart.AddDate(0, 0, 7)}
	if window.To.After(s.now()) {
		return nil, apperror.Validation("week_start", "неделя ещё не завершена")
	}

	log := logger.Log.WithField("week_start", weekStart.Format(time.DateOnly))

	run, err := s.runs.StartRun(ctx, weekStart)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := s.ranker.RankWindow(ctx, window, true)
	if err != nil {
		s.finish(ctx, run, models.RunStatusPartial, 0, nil, log)
		return nil, err
	}
	if len(rows) > s.topN {
		rows = rows[:s.topN]
	}
	log.WithField("ranked", len(rows)).Info("начинаем распределение недельных наград")

	outcomes := s.creditAll(ctx, weekStart, rows)
	s.reconcile(ctx, weekStart, outcomes)

	report := &models.DistributionReport{WeekStart: weekStart, Ranked: len(rows)}
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.Failed++
			report.Failures = append(report.Failures, models.DistributionFailure{
				AccountID: o.row.AccountID,
				Rank:      o.row.Rank,
				Reason:    o.err.Error(),
			})
		case o.replayed:
			report.AlreadyCredited++
		default:
			report.RewardsDistributed++
		}
	}

	status := models.RunStatusCompleted
	if report.Failed > 0 {
		status = models.RunStatusPartial
	}
	s.finish(ctx, run, status, len(rows), report, log)

	log.WithFields(logrus.Fields{
		"rewards_distributed": report.RewardsDistributed,
		"already_credited":    report.AlreadyCredited,
		"failed":              report.Failed,
	}).Info("распределение недельных наград завершено")
	return report, nil
}

// creditAll начисляет бонусы параллельно, не более s.workers одновременно.
func (s *DistributionService) creditAll(ctx context.Context, weekStart time.Time, rows []models.LeaderboardRow) []creditOutcome {
	outcomes := make([]creditOutcome, len(rows))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, row := range rows {
		g.Go(func() error {
			out := creditOutcome{row: row}
			key := WeeklyRewardKey(weekStart, row.AccountID)
			panicked := goroutine.Recover(func() {
				// Позиция могла сместиться с прошлого запуска, сумма тогда другая.
				// Уже начисленный за неделю бонус не пересчитывается.
				done, err := s.ledger.HasCredit(ctx, key, row.AccountID, valueobject.EntryKindBonus)
				if err != nil {
					out.err = err
					return
				}
				if done {
					out.replayed = true
					return
				}

				res, err := s.ledger.CreditReward(ctx, row.AccountID, TierReward(row.Rank),
					fmt.Sprintf("weekly leaderboard reward, position #%d", row.Rank), key)
				if err != nil {
					out.err = err
					return
				}
				out.replayed = res.Replayed
			})
			if panicked {
				out.err = fmt.Errorf("panic при начислении")
			}
			if out.err != nil {
				logger.Log.WithFields(logrus.Fields{
					"account_id": row.AccountID,
					"rank":       row.Rank,
				}).WithError(out.err).Warn("не удалось начислить недельную награду")
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// reconcile проверяет, что у каждого успешного начисления есть запись в журнале.
func (s *DistributionService) reconcile(ctx context.Context, weekStart time.Time, outcomes []creditOutcome) {
	for i := range outcomes {
		if outcomes[i].err != nil {
			continue
		}
		ok, err := s.ledger.HasCredit(ctx, WeeklyRewardKey(weekStart, outcomes[i].row.AccountID), outcomes[i].row.AccountID, valueobject.EntryKindBonus)
		switch {
		case err != nil:
			outcomes[i].err = fmt.Errorf("сверка: %w", err)
		case !ok:
			outcomes[i].err = fmt.Errorf("сверка: запись о начислении не найдена")
		}
	}
}

func (s *DistributionService) finish(ctx context.Context, run *models.DistributionRun, status string, ranked int, report *models.DistributionReport, log *logrus.Entry) {
	finishedAt := s.now()
	run.Status = status
	run.Ranked = ranked
	run.FinishedAt = &finishedAt
	if report != nil {
		run.Distributed = report.RewardsDistributed
		run.AlreadyCredited = report.AlreadyCredited
		run.Failed = report.Failed
	}
	if err := s.runs.FinishRun(ctx, run); err != nil {
		log.WithError(err).Error("не удалось сохранить итог распределения")
	}
}

// GetRun возвращает последний запуск распределения за неделю.
func (s *DistributionService) GetRun(ctx context.Context, weekStart time.Time) (*models.DistributionRun, error) {
	run, err := s.runs.GetRun(ctx, weekStart)
	if err != nil {
		return nil, translate(err)
	}
	return run, nil
}
