package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
)

var matchColumns = []string{"id", "skill_owner_id", "requester_id", "initiator_id", "status", "tokens_awarded", "completion_key", "created_at", "updated_at"}

var feedbackColumns = []string{"id", "match_id", "giver_id", "receiver_id", "rating", "created_at"}

func TestMatchRepository_Complete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)
	matchID, owner, requester := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	rating := 5

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM matches WHERE id = $1 FOR UPDATE")).
		WithArgs(matchID).
		WillReturnRows(sqlmock.NewRows(matchColumns).
			AddRow(matchID.String(), owner.String(), requester.String(), requester.String(), "ACCEPTED", nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ledger_entries WHERE idempotency_key = $1")).
		WithArgs("match-reward:" + matchID.String()).
		WillReturnRows(sqlmock.NewRows(entryColumns))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = balance + $2")).
		WithArgs(owner, int64(75)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(75)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), owner.String(), int64(75), "EARNED", "match reward", int64(75), "match-reward:"+matchID.String(), now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO feedback")).
		WithArgs(sqlmock.AnyArg(), matchID, requester, owner, rating, now).
		WillReturnRows(sqlmock.NewRows(feedbackColumns).
			AddRow(uuid.NewString(), matchID.String(), requester.String(), owner.String(), rating, now))
	mock.ExpectExec(regexp.QuoteMeta("completed_services = completed_services + 1")).
		WithArgs(owner, int64(5), now.AddDate(0, 0, -7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE matches SET status = $2, tokens_awarded = $3")).
		WithArgs(matchID, "COMPLETED", int64(75), "req-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.Complete(context.Background(), models.MatchCompletion{
		MatchID:        matchID,
		ActingUserID:   requester,
		Reward:         75,
		Rating:         &rating,
		CompletionKey:  "req-1",
		RewardKey:      "match-reward:" + matchID.String(),
		Description:    "match reward",
		FromStatuses:   []valueobject.MatchStatus{valueobject.MatchStatusPending, valueobject.MatchStatusAccepted},
		CompletedAt:    now,
		RatingWindowAt: now.AddDate(0, 0, -7),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(75), res.TokensAwarded)
	assert.Equal(t, valueobject.MatchStatusCompleted, res.Status)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, 5, res.Feedback.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_Complete_AlreadyCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)
	matchID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(matchColumns).
			AddRow(matchID.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), "COMPLETED", int64(25), "first", now, now))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), models.MatchCompletion{
		MatchID:       matchID,
		Reward:        25,
		CompletionKey: "second",
		FromStatuses:  []valueobject.MatchStatus{valueobject.MatchStatusAccepted},
	})

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_Complete_ReplaysSameKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)
	matchID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(matchColumns).
			AddRow(matchID.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), "COMPLETED", int64(25), "same", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM feedback WHERE match_id = $1")).
		WithArgs(matchID).
		WillReturnRows(sqlmock.NewRows(feedbackColumns))
	mock.ExpectCommit()

	res, err := repo.Complete(context.Background(), models.MatchCompletion{
		MatchID:       matchID,
		Reward:        25,
		CompletionKey: "same",
		FromStatuses:  []valueobject.MatchStatus{valueobject.MatchStatusAccepted},
	})

	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, int64(25), res.TokensAwarded)
	assert.Nil(t, res.Feedback)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_Transition_Rejected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db).WithRetryer(noRetry())
	matchID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE matches SET status = $2, updated_at = $3")).
		WithArgs(matchID, "ACCEPTED", now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(matchColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM matches WHERE id = $1")).
		WithArgs(matchID).
		WillReturnRows(sqlmock.NewRows(matchColumns).
			AddRow(matchID.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), "REJECTED", nil, nil, now, now))

	_, err := repo.Transition(context.Background(), matchID,
		[]valueobject.MatchStatus{valueobject.MatchStatusPending}, valueobject.MatchStatusAccepted, now)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepository_WindowStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLeaderboardRepository(db)
	window := models.Window{
		From: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
	}
	a := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts a")).
		WithArgs(window.From, window.To, "student").
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "balance", "seq", "rating_sum", "rating_count", "services_completed"}).
			AddRow(a.String(), int64(40), int64(1), int64(9), int64(2), int64(2)))

	stats, err := repo.WindowStats(context.Background(), window, "student")

	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "4.5", stats[0].AvgRating().String())
	assert.True(t, stats[0].HasActivity())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionRepository_StartRun(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDistributionRepository(db)
	week := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO distribution_runs")).
		WithArgs(sqlmock.AnyArg(), "2024-05-06", models.RunStatusRunning).
		WillReturnRows(sqlmock.NewRows([]string{"id", "week_start", "status", "ranked", "distributed", "already_credited", "failed", "attempts", "started_at", "finished_at"}).
			AddRow(uuid.NewString(), week, models.RunStatusRunning, 0, 0, 0, 0, 2, time.Now(), nil))

	run, err := repo.StartRun(context.Background(), week)

	require.NoError(t, err)
	assert.Equal(t, 2, run.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
