package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
	"github.com/ignatzorin/skillswap-backend/internal/repository/memory"
)

// fixture собирает сервисы поверх хранилища в памяти с управляемыми часами.
type fixture struct {
	store        *memory.Store
	clock        *fakeClock
	ledger       *LedgerService
	matches      *MatchService
	leaderboard  *LeaderboardService
	distribution *DistributionService
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(t time.Time) { c.now = t }

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	logger.Discard()

	clock := &fakeClock{now: start}
	store := memory.NewStore()
	store.SetClock(clock.Now)
	retry := common.Retryer{Attempts: 2, Backoff: time.Millisecond}

	f := &fixture{store: store, clock: clock}
	f.ledger = NewLedgerService(store, retry)
	f.matches = NewMatchService(store, store, 25, true, retry)
	f.matches.now = clock.Now
	f.leaderboard = NewLeaderboardService(store, time.UTC)
	f.leaderboard.now = clock.Now
	f.distribution = NewDistributionService(store, f.leaderboard, f.ledger, time.UTC, 100, 4)
	f.distribution.now = clock.Now
	return f
}

func (f *fixture) account(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, _, err := f.ledger.OpenAccount(context.Background(), id, models.RoleStudent)
	require.NoError(t, err)
	return id
}

// completeAt создаёт и завершает матч в момент at.
func (f *fixture) completeAt(t *testing.T, owner, requester uuid.UUID, rating *int, at time.Time) *models.CompletionResult {
	t.Helper()
	f.clock.Set(at)
	m, err := f.matches.CreateMatch(context.Background(), owner, requester, requester)
	require.NoError(t, err)
	res, err := f.matches.CompleteMatch(context.Background(), m.ID, requester, rating, "")
	require.NoError(t, err)
	return res
}

func intPtr(v int) *int { return &v }
