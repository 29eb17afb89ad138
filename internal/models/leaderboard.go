package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaderboardPeriod окно рейтинга.
type LeaderboardPeriod string

const (
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
	PeriodAllTime LeaderboardPeriod = "all-time"
)

func (p LeaderboardPeriod) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// Положение аккаунта относительно запрошенного лимита.
const (
	StandingRanked   = "ranked"
	StandingNotInTop = "not_in_top"
)

// Window полуинтервал [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ContributorStats сырые агрегаты аккаунта за окно.
type ContributorStats struct {
	AccountID         uuid.UUID `db:"account_id"`
	Balance           int64     `db:"balance"`
	Seq               int64     `db:"seq"`
	RatingSum         int64     `db:"rating_sum"`
	RatingCount       int64     `db:"rating_count"`
	ServicesCompleted int64     `db:"services_completed"`
}

// HasActivity есть ли у аккаунта завершённые матчи или отзывы в окне.
func (s ContributorStats) HasActivity() bool {
	return s.RatingCount > 0 || s.ServicesCompleted > 0
}

// AvgRating средняя оценка, два знака после запятой.
func (s ContributorStats) AvgRating() decimal.Decimal {
	if s.RatingCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.RatingSum).DivRound(decimal.NewFromInt(s.RatingCount), 2)
}

// LeaderboardRow строка рейтинга, не хранится в БД.
type LeaderboardRow struct {
	AccountID         uuid.UUID       `json:"account_id"`
	AvgRating         decimal.Decimal `json:"avg_rating"`
	ServicesCompleted int64           `json:"services_completed"`
	Balance           int64           `json:"balance"`
	Rank              int             `json:"rank,omitempty"`
	Standing          string          `json:"standing"`
}

// Leaderboard ответ рейтинга за период.
type Leaderboard struct {
	Period LeaderboardPeriod `json:"period"`
	Window Window            `json:"window"`
	Rows   []LeaderboardRow  `json:"rows"`
}
