package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
)

type mockDistributor struct {
	mock.Mock
}

func (m *mockDistributor) PreviousWeekStart() time.Time {
	return m.Called().Get(0).(time.Time)
}

func (m *mockDistributor) DistributeWeeklyRewards(ctx context.Context, weekStart time.Time) (*models.DistributionReport, error) {
	args := m.Called(ctx, weekStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DistributionReport), args.Error(1)
}

func TestScheduler_RunPreviousWeek(t *testing.T) {
	logger.Discard()
	week := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	d := new(mockDistributor)
	d.On("PreviousWeekStart").Return(week)
	d.On("DistributeWeeklyRewards", mock.Anything, week).Return(&models.DistributionReport{RewardsDistributed: 3}, nil)

	s, err := NewScheduler(d, "5 0 * * 1", time.UTC)
	require.NoError(t, err)
	s.RunPreviousWeek(context.Background())

	d.AssertExpectations(t)
}

func TestScheduler_SurvivesErrorAndPanic(t *testing.T) {
	logger.Discard()
	week := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	failing := new(mockDistributor)
	failing.On("PreviousWeekStart").Return(week)
	failing.On("DistributeWeeklyRewards", mock.Anything, week).Return(nil, errors.New("db down"))
	s, err := NewScheduler(failing, "@weekly", time.UTC)
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.RunPreviousWeek(context.Background()) })

	panicking := new(mockDistributor)
	panicking.On("PreviousWeekStart").Return(week)
	panicking.On("DistributeWeeklyRewards", mock.Anything, week).Run(func(mock.Arguments) { panic("boom") })
	s, err = NewScheduler(panicking, "@weekly", time.UTC)
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.RunPreviousWeek(context.Background()) })
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(new(mockDistributor), "every monday", time.UTC)
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	logger.Discard()
	s, err := NewScheduler(new(mockDistributor), "5 0 * * 1", time.UTC)
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
