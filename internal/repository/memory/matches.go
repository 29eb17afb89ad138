package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

func (s *Store) Create(ctx context.Context, match *models.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	now := s.now()
	match.CreatedAt = now
	match.UpdatedAt = now
	stored := *match
	s.matches[match.ID] = &stored
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	out := *m
	return &out, nil
}

func (s *Store) Transition(ctx context.Context, id uuid.UUID, from []valueobject.MatchStatus, to valueobject.MatchStatus, at time.Time) (*models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}
	if !containsStatus(from, m.Status) {
		return nil, repository.ErrInvalidTransition
	}
	m.Status = to
	m.UpdatedAt = at
	out := *m
	return &out, nil
}

// Complete повторяет транзакцию PostgreSQL: все проверки до начисления, после него шаги не падают.
func (s *Store) Complete(ctx context.Context, cmd models.MatchCompletion) (*models.CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	m, ok := s.matches[cmd.MatchID]
	if !ok {
		return nil, repository.ErrMatchNotFound
	}

	if m.Status == valueobject.MatchStatusCompleted && cmd.CompletionKey != "" &&
		m.CompletionKey != nil && *m.CompletionKey == cmd.CompletionKey {
		res := &models.CompletionResult{MatchID: m.ID, Status: m.Status, Replayed: true}
		if m.TokensAwarded != nil {
			res.TokensAwarded = *m.TokensAwarded
		}
		if fb, ok := s.feedback[m.ID]; ok {
			out := *fb
			res.Feedback = &out
		}
		return res, nil
	}
	if !containsStatus(cmd.FromStatuses, m.Status) {
		return nil, repository.ErrInvalidTransition
	}
	if _, exists := s.feedback[m.ID]; exists && cmd.Rating != nil {
		return nil, repository.ErrFeedbackExists
	}

	c, ok := s.cell(m.SkillOwnerID)
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := s.applyLocked(c, models.LedgerMutation{
		AccountID:      m.SkillOwnerID,
		Amount:         cmd.Reward,
		Kind:           valueobject.EntryKindEarned,
		Description:    cmd.Description,
		IdempotencyKey: cmd.RewardKey,
	}); err != nil {
		return nil, err
	}

	res := &models.CompletionResult{
		MatchID:       m.ID,
		Status:        valueobject.MatchStatusCompleted,
		TokensAwarded: cmd.Reward,
	}

	c.account.CompletedServices++
	if cmd.Rating != nil {
		fb := &models.Feedback{
			ID:         uuid.New(),
			MatchID:    m.ID,
			GiverID:    cmd.ActingUserID,
			ReceiverID: m.SkillOwnerID,
			Rating:     *cmd.Rating,
			CreatedAt:  cmd.CompletedAt,
		}
		s.feedback[m.ID] = fb
		out := *fb
		res.Feedback = &out
		c.account.TotalRatingSum += int64(*cmd.Rating)
	}
	c.account.WeeklyRating = s.trailingAverage(m.SkillOwnerID, cmd.RatingWindowAt)

	reward := cmd.Reward
	m.Status = valueobject.MatchStatusCompleted
	m.TokensAwarded = &reward
	m.UpdatedAt = cmd.CompletedAt
	if cmd.CompletionKey != "" {
		key := cmd.CompletionKey
		m.CompletionKey = &key
	}
	return res, nil
}

// trailingAverage вызывается под matchMu.
func (s *Store) trailingAverage(receiver uuid.UUID, since time.Time) decimal.Decimal {
	var sum, count int64
	for _, fb := range s.feedback {
		if fb.ReceiverID == receiver && !fb.CreatedAt.Before(since) {
			sum += int64(fb.Rating)
			count++
		}
	}
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 2)
}

func (s *Store) GetFeedback(ctx context.Context, matchID uuid.UUID) (*models.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	fb, ok := s.feedback[matchID]
	if !ok {
		return nil, repository.ErrFeedbackNotFound
	}
	out := *fb
	return &out, nil
}

func (s *Store) ListFeedbackByReceiver(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]models.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.matchMu.Lock()
	var all []models.Feedback
	for _, fb := range s.feedback {
		if fb.ReceiverID == receiverID {
			all = append(all, *fb)
		}
	}
	s.matchMu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := []models.Feedback{}
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func containsStatus(set []valueobject.MatchStatus, s valueobject.MatchStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
