package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

// LeaderboardRepository только читает агрегаты, ничего не изменяет.
type LeaderboardRepository struct {
	db    *sqlx.DB
	retry common.Retryer
}

func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db, retry: common.DefaultRetryer}
}

func (r *LeaderboardRepository) WithRetryer(retry common.Retryer) *LeaderboardRepository {
	r.retry = retry
	return r
}

// WindowStats собирает агрегаты всех аккаунтов роли role за полуинтервал [From, To).
func (r *LeaderboardRepository) WindowStats(ctx context.Context, window models.Window, role string) ([]models.ContributorStats, error) {
	query := `
		SELECT a.id AS account_id, a.balance, a.seq,
			COALESCE(f.rating_sum, 0) AS rating_sum,
			COALESCE(f.rating_count, 0) AS rating_count,
			COALESCE(m.services, 0) AS services_completed
		FROM accounts a
		LEFT JOIN (
			SELECT receiver_id, SUM(rating) AS rating_sum, COUNT(*) AS rating_count
			FROM feedback
			WHERE created_at >= $1 AND created_at < $2
			GROUP BY receiver_id
		) f ON f.receiver_id = a.id
		LEFT JOIN (
			SELECT skill_owner_id, COUNT(*) AS services
			FROM matches
			WHERE status = 'COMPLETED' AND updated_at >= $1 AND updated_at < $2
			GROUP BY skill_owner_id
		) m ON m.skill_owner_id = a.id
		WHERE a.role = $3
		ORDER BY a.seq
	`

	stats := []models.ContributorStats{}
	err := r.retry.Do(ctx, "leaderboard.window_stats", func() error {
		stats = stats[:0]
		return r.db.SelectContext(ctx, &stats, query, window.From, window.To, role)
	})
	if err != nil {
		return nil, fmt.Errorf("leaderboard repository: window stats %w", err)
	}
	return stats, nil
}
