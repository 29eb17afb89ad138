package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrInvalidTransition = errors.New("match status does not allow transition")
	ErrFeedbackExists    = errors.New("feedback for match already exists")
	ErrFeedbackNotFound  = errors.New("feedback not found")
)

const constraintFeedbackMatch = "feedback_match_id_key"

type MatchRepository struct {
	db    *sqlx.DB
	retry common.Retryer
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db, retry: common.DefaultRetryer}
}

func (r *MatchRepository) WithRetryer(retry common.Retryer) *MatchRepository {
	r.retry = retry
	return r
}

func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (id, skill_owner_id, requester_id, initiator_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		match.ID, match.SkillOwnerID, match.RequesterID, match.InitiatorID, match.Status,
	).Scan(&match.CreatedAt, &match.UpdatedAt)
}

func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var match *models.Match
	err := r.retry.Do(ctx, "match.get", func() error {
		var err error
		match, err = common.GetByID[models.Match](ctx, r.db, "matches", id, ErrMatchNotFound)
		return err
	}, ErrMatchNotFound)
	if err != nil {
		return nil, err
	}
	return match, nil
}

// Transition меняет статус, только если текущий входит в from.
func (r *MatchRepository) Transition(ctx context.Context, id uuid.UUID, from []valueobject.MatchStatus, to valueobject.MatchStatus, at time.Time) (*models.Match, error) {
	var match models.Match
	err := r.db.GetContext(ctx, &match, `
		UPDATE matches SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
		RETURNING *
	`, id, to, at, pq.Array(statusStrings(from)))
	if err == nil {
		return &match, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match repository: transition %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrInvalidTransition
}

// Complete завершает матч одной транзакцией: награда, отзыв, агрегаты и статус.
// Строка матча блокируется FOR UPDATE, поэтому два параллельных завершения не начислят дважды.
func (r *MatchRepository) Complete(ctx context.Context, cmd models.MatchCompletion) (*models.CompletionResult, error) {
	var result *models.CompletionResult
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var match models.Match
		if err := tx.GetContext(ctx, &match, `SELECT * FROM matches WHERE id = $1 FOR UPDATE`, cmd.MatchID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("match repository: lock match %w", err)
		}

		if match.Status == valueobject.MatchStatusCompleted && cmd.CompletionKey != "" &&
			match.CompletionKey != nil && *match.CompletionKey == cmd.CompletionKey {
			res, err := replayCompletion(ctx, tx, &match)
			if err != nil {
				return err
			}
			result = res
			return nil
		}
		if !statusIn(match.Status, cmd.FromStatuses) {
			return ErrInvalidTransition
		}

		if _, err := applyMutation(ctx, tx, models.LedgerMutation{
			AccountID:      match.SkillOwnerID,
			Amount:         cmd.Reward,
			Kind:           valueobject.EntryKindEarned,
			Description:    cmd.Description,
			IdempotencyKey: cmd.RewardKey,
		}); err != nil {
			return err
		}

		res := &models.CompletionResult{
			MatchID:       match.ID,
			Status:        valueobject.MatchStatusCompleted,
			TokensAwarded: cmd.Reward,
		}

		var ratingSum int64
		if cmd.Rating != nil {
			var fb models.Feedback
			err := tx.GetContext(ctx, &fb, `
				INSERT INTO feedback (id, match_id, giver_id, receiver_id, rating, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING *
			`, uuid.New(), match.ID, cmd.ActingUserID, match.SkillOwnerID, *cmd.Rating, cmd.CompletedAt)
			if err != nil {
				if common.IsUniqueViolation(err, constraintFeedbackMatch) {
					return ErrFeedbackExists
				}
				return fmt.Errorf("match repository: insert feedback %w", err)
			}
			res.Feedback = &fb
			ratingSum = int64(*cmd.Rating)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts SET
				completed_services = completed_services + 1,
				total_rating_sum = total_rating_sum + $2,
				weekly_rating = (
					SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0)
					FROM feedback WHERE receiver_id = $1 AND created_at >= $3
				),
				updated_at = NOW()
			WHERE id = $1
		`, match.SkillOwnerID, ratingSum, cmd.RatingWindowAt); err != nil {
			return fmt.Errorf("match repository: update aggregates %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE matches SET status = $2, tokens_awarded = $3, completion_key = $4, updated_at = $5
			WHERE id = $1
		`, match.ID, valueobject.MatchStatusCompleted, cmd.Reward, nullableKey(cmd.CompletionKey), cmd.CompletedAt); err != nil {
			return fmt.Errorf("match repository: complete match %w", err)
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFeedback возвращает отзыв по матчу.
func (r *MatchRepository) GetFeedback(ctx context.Context, matchID uuid.UUID) (*models.Feedback, error) {
	var fb *models.Feedback
	err := r.retry.Do(ctx, "match.get_feedback", func() error {
		var err error
		fb, err = common.GetByField[models.Feedback](ctx, r.db, "feedback", "match_id", matchID, ErrFeedbackNotFound)
		return err
	}, ErrFeedbackNotFound)
	if err != nil {
		return nil, err
	}
	return fb, nil
}

// ListFeedbackByReceiver отзывы, полученные аккаунтом, новые первыми.
func (r *MatchRepository) ListFeedbackByReceiver(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]models.Feedback, error) {
	items := []models.Feedback{}
	err := r.retry.Do(ctx, "match.list_feedback", func() error {
		items = items[:0]
		return r.db.SelectContext(ctx, &items, `
			SELECT * FROM feedback WHERE receiver_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, receiverID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("match repository: list feedback %w", err)
	}
	return items, nil
}

func replayCompletion(ctx context.Context, tx *sqlx.Tx, match *models.Match) (*models.CompletionResult, error) {
	res := &models.CompletionResult{
		MatchID:  match.ID,
		Status:   match.Status,
		Replayed: true,
	}
	if match.TokensAwarded != nil {
		res.TokensAwarded = *match.TokensAwarded
	}

	var fb models.Feedback
	err := tx.GetContext(ctx, &fb, `SELECT * FROM feedback WHERE match_id = $1`, match.ID)
	switch {
	case err == nil:
		res.Feedback = &fb
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("match repository: replay feedback %w", err)
	}
	return res, nil
}

func statusIn(s valueobject.MatchStatus, set []valueobject.MatchStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func statusStrings(set []valueobject.MatchStatus) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}
