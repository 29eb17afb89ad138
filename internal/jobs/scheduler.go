// Package jobs запускает фоновые задачи по расписанию (cron).
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/goroutine"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
)

type WeeklyDistributor interface {
	PreviousWeekStart() time.Time
	DistributeWeeklyRewards(ctx context.Context, weekStart time.Time) (*models.DistributionReport, error)
}

// Scheduler раздаёт недельные награды за прошедшую неделю.
type Scheduler struct {
	cron        *cron.Cron
	distributor WeeklyDistributor
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewScheduler регистрирует задачу по выражению spec в часовом поясе loc.
func NewScheduler(distributor WeeklyDistributor, spec string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, distributor: distributor, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, func() { s.RunPreviousWeek(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("jobs: некорректное расписание %q: %w", spec, err)
	}
	return s, nil
}

// RunPreviousWeek раздаёт награды за последнюю завершённую неделю.
func (s *Scheduler) RunPreviousWeek(ctx context.Context) {
	week := s.distributor.PreviousWeekStart()
	log := logger.Log.WithField("week_start", week.Format(time.DateOnly))
	log.Info("[CRON] недельные награды")

	panicked := goroutine.Recover(func() {
		report, err := s.distributor.DistributeWeeklyRewards(ctx, week)
		if err != nil {
			log.WithError(err).Error("[CRON] ошибка распределения наград")
			return
		}
		log.WithFields(logrus.Fields{
			"rewards_distributed": report.RewardsDistributed,
			"already_credited":    report.AlreadyCredited,
			"failed":              report.Failed,
		}).Info("[CRON] награды распределены")
	})
	if panicked {
		log.Error("[CRON] распределение прервано паникой")
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.Info("планировщик задач запущен")
}

// Stop ждёт завершения текущего запуска.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Log.Info("планировщик задач остановлен")
}
