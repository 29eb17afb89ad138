package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type LeaderboardRepository interface {
	WindowStats(ctx context.Context, window models.Window, role string) ([]models.ContributorStats, error)
}

// LeaderboardService считает рейтинг на лету, ничего не сохраняет.
type LeaderboardService struct {
	repo LeaderboardRepository
	loc  *time.Location
	now  func() time.Time
}

func NewLeaderboardService(repo LeaderboardRepository, loc *time.Location) *LeaderboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaderboardService{repo: repo, loc: loc, now: time.Now}
}

// WindowFor возвращает полуинтервал периода, в который попадает now.
// Неделя начинается в понедельник 00:00 по часовому поясу сервиса.
func (s *LeaderboardService) WindowFor(period models.LeaderboardPeriod, now time.Time) (models.Window, error) {
	local := now.In(s.loc)
	switch period {
	case models.PeriodWeekly:
		from := WeekStart(local, s.loc)
		return models.Window{From: from, To: from.AddDate(0, 0, 7)}, nil
	case models.PeriodMonthly:
		from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)
		return models.Window{From: from, To: from.AddDate(0, 1, 0)}, nil
	case models.PeriodAllTime:
		return models.Window{From: time.Unix(0, 0).UTC(), To: now.Truncate(time.Second).Add(time.Second)}, nil
	}
	return models.Window{}, apperror.Validation("period", "период должен быть weekly, monthly или all-time")
}

// WeekStart понедельник 00:00 недели, которой принадлежит t.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
}

// Rank возвращает первые limit строк рейтинга за период.
func (s *LeaderboardService) Rank(ctx context.Context, period models.LeaderboardPeriod, limit int) (*models.Leaderboard, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	window, err := s.WindowFor(period, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.RankWindow(ctx, window, false)
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return &models.Leaderboard{Period: period, Window: window, Rows: rows}, nil
}

// RankOf возвращает строку аккаунта. За пределами limit позиция не раскрывается.
func (s *LeaderboardService) RankOf(ctx context.Context, period models.LeaderboardPeriod, limit int, accountID uuid.UUID) (*models.LeaderboardRow, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	window, err := s.WindowFor(period, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.RankWindow(ctx, window, false)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.AccountID != accountID {
			continue
		}
		if row.Rank > limit {
			row.Rank = 0
			row.Standing = models.StandingNotInTop
		}
		return &row, nil
	}
	return nil, apperror.New(apperror.ErrCodeNotFound, "аккаунт не участвует в рейтинге")
}

// RankWindow сортирует всех участников окна и проставляет позиции с единицы.
// activeOnly оставляет только аккаунты с завершёнными матчами или отзывами в окне.
func (s *LeaderboardService) RankWindow(ctx context.Context, window models.Window, activeOnly bool) ([]models.LeaderboardRow, error) {
	stats, err := s.repo.WindowStats(ctx, window, models.RoleStudent)
	if err != nil {
		return nil, translate(err)
	}

	if activeOnly {
		active := stats[:0]
		for _, st := range stats {
			if st.HasActivity() {
				active = append(active, st)
			}
		}
		stats = active
	}

	sortStats(stats)

	rows := make([]models.LeaderboardRow, len(stats))
	for i, st := range stats {
		rows[i] = models.LeaderboardRow{
			AccountID:         st.AccountID,
			AvgRating:         st.AvgRating(),
			ServicesCompleted: st.ServicesCompleted,
			Balance:           st.Balance,
			Rank:              i + 1,
			Standing:          models.StandingRanked,
		}
	}
	return rows, nil
}

// sortStats: средний рейтинг, затем число услуг, затем баланс, по убыванию.
// Дальше порядок открытия аккаунта и ID, чтобы результат был воспроизводим.
// Средние сравниваются перекрёстным умножением, без округления.
func sortStats(stats []models.ContributorStats) {
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		an, ad := ratio(a)
		bn, bd := ratio(b)
		if l, r := an*bd, bn*ad; l != r {
			return l > r
		}
		if a.ServicesCompleted != b.ServicesCompleted {
			return a.ServicesCompleted > b.ServicesCompleted
		}
		if a.Balance != b.Balance {
			return a.Balance > b.Balance
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.AccountID.String() < b.AccountID.String()
	})
}

func ratio(s models.ContributorStats) (int64, int64) {
	if s.RatingCount == 0 {
		return 0, 1
	}
	return s.RatingSum, s.RatingCount
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultLeaderboardLimit, nil
	case limit < 0 || limit > MaxLeaderboardLimit:
		return 0, apperror.Validation("limit", "limit должен быть от 1 до 100")
	}
	return limit, nil
}
