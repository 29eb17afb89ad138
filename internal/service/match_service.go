package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

// ratingWindow окно, по которому пересчитывается weekly_rating.
const ratingWindow = 7 * 24 * time.Hour

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	Transition(ctx context.Context, id uuid.UUID, from []valueobject.MatchStatus, to valueobject.MatchStatus, at time.Time) (*models.Match, error)
	Complete(ctx context.Context, cmd models.MatchCompletion) (*models.CompletionResult, error)
	GetFeedback(ctx context.Context, matchID uuid.UUID) (*models.Feedback, error)
	ListFeedbackByReceiver(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]models.Feedback, error)
}

type AccountReader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// MatchService координирует жизненный цикл матча и награду за его завершение.
type MatchService struct {
	repo                  MatchRepository
	accounts              AccountReader
	baseReward            int64
	allowDirectCompletion bool
	retry                 common.Retryer
	now                   func() time.Time
}

func NewMatchService(repo MatchRepository, accounts AccountReader, baseReward int64, allowDirectCompletion bool, retry common.Retryer) *MatchService {
	return &MatchService{
		repo:                  repo,
		accounts:              accounts,
		baseReward:            baseReward,
		allowDirectCompletion: allowDirectCompletion,
		retry:                 retry,
		now:                   time.Now,
	}
}

// CreateMatch создаёт матч в статусе PENDING. Инициатор должен быть одной из сторон.
func (s *MatchService) CreateMatch(ctx context.Context, skillOwnerID, requesterID, initiatorID uuid.UUID) (*models.Match, error) {
	if skillOwnerID == uuid.Nil {
		return nil, apperror.Validation("skill_owner_id", "обязательное поле")
	}
	if requesterID == uuid.Nil {
		return nil, apperror.Validation("requester_id", "обязательное поле")
	}
	if skillOwnerID == requesterID {
		return nil, apperror.Validation("requester_id", "нельзя создать матч с самим собой")
	}
	if initiatorID != skillOwnerID && initiatorID != requesterID {
		return nil, apperror.Validation("initiator_id", "инициатор должен быть участником матча")
	}

	for _, id := range []uuid.UUID{skillOwnerID, requesterID} {
		if _, err := s.accounts.GetAccount(ctx, id); err != nil {
			return nil, translate(err)
		}
	}

	match := &models.Match{
		ID:           uuid.New(),
		SkillOwnerID: skillOwnerID,
		RequesterID:  requesterID,
		InitiatorID:  initiatorID,
		Status:       valueobject.MatchStatusPending,
	}
	if err := s.repo.Create(ctx, match); err != nil {
		return nil, translate(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"match_id":       match.ID,
		"skill_owner_id": skillOwnerID,
		"requester_id":   requesterID,
	}).Info("матч создан")
	return match, nil
}

// GetMatch доступен участникам матча и администраторам.
func (s *MatchService) GetMatch(ctx context.Context, id, actingUserID uuid.UUID, role string) (*models.Match, error) {
	match, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if role != models.RoleAdmin && !match.IsParticipant(actingUserID) {
		return nil, apperror.ErrForbidden
	}
	return match, nil
}

func (s *MatchService) AcceptMatch(ctx context.Context, id, actingUserID uuid.UUID) (*models.Match, error) {
	return s.answer(ctx, id, actingUserID, valueobject.MatchStatusAccepted)
}

func (s *MatchService) RejectMatch(ctx context.Context, id, actingUserID uuid.UUID) (*models.Match, error) {
	return s.answer(ctx, id, actingUserID, valueobject.MatchStatusRejected)
}

// answer принимает или отклоняет матч. Отвечает только вторая сторона, не инициатор.
func (s *MatchService) answer(ctx context.Context, id, actingUserID uuid.UUID, to valueobject.MatchStatus) (*models.Match, error) {
	match, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !match.IsParticipant(actingUserID) || actingUserID == match.InitiatorID {
		return nil, apperror.ErrForbidden
	}
	if !match.Status.CanTransitionTo(to, s.allowDirectCompletion) {
		return nil, apperror.ErrInvalidTransition
	}

	updated, err := s.repo.Transition(ctx, id, valueobject.OpenStatuses(to, s.allowDirectCompletion), to, s.now())
	if err != nil {
		return nil, translate(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"match_id": id,
		"status":   to,
		"actor_id": actingUserID,
	}).Info("статус матча изменён")
	return updated, nil
}

// CompleteMatch завершает матч, начисляет награду владельцу навыка и сохраняет отзыв.
// Повтор с тем же ключом возвращает исходный результат без повторного начисления.
func (s *MatchService) CompleteMatch(ctx context.Context, id, actingUserID uuid.UUID, rating *int, key string) (*models.CompletionResult, error) {
	if rating != nil {
		if _, err := valueobject.NewRating(*rating); err != nil {
			return nil, err
		}
	}
	if err := validation.ValidateIdempotencyKey(key); err != nil {
		return nil, err
	}

	match, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !match.IsParticipant(actingUserID) {
		return nil, apperror.ErrForbidden
	}
	if !match.Status.CanTransitionTo(valueobject.MatchStatusCompleted, s.allowDirectCompletion) && !s.isReplay(match, key) {
		return nil, apperror.ErrInvalidTransition
	}

	reward := ComputeReward(s.baseReward, rating)
	completedAt := s.now()
	cmd := models.MatchCompletion{
		MatchID:        id,
		ActingUserID:   actingUserID,
		Reward:         reward,
		Rating:         rating,
		CompletionKey:  key,
		RewardKey:      MatchRewardKey(id),
		Description:    fmt.Sprintf("reward for match %s", id),
		FromStatuses:   valueobject.OpenStatuses(valueobject.MatchStatusCompleted, s.allowDirectCompletion),
		CompletedAt:    completedAt,
		RatingWindowAt: completedAt.Add(-ratingWindow),
	}

	var result *models.CompletionResult
	call := func() error {
		res, err := s.repo.Complete(ctx, cmd)
		if err != nil {
			return err
		}
		result = res
		return nil
	}
	if key == "" {
		err = call()
	} else {
		err = s.retry.Do(ctx, "match.complete", call, permanentRepoErrors...)
	}
	if err != nil {
		appErr := translate(err)
		if apperror.IsStorageFailure(appErr) {
			logger.Log.WithField("match_id", id).WithError(err).Error("не удалось завершить матч")
		}
		return nil, appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"match_id":       id,
		"skill_owner_id": match.SkillOwnerID,
		"tokens_awarded": result.TokensAwarded,
		"rated":          rating != nil,
		"replayed":       result.Replayed,
	}).Info("матч завершён")
	return result, nil
}

func (s *MatchService) isReplay(match *models.Match, key string) bool {
	return key != "" && match.Status == valueobject.MatchStatusCompleted &&
		match.CompletionKey != nil && *match.CompletionKey == key
}

// ListFeedback отзывы, полученные аккаунтом.
func (s *MatchService) ListFeedback(ctx context.Context, receiverID uuid.UUID, limit, offset int) ([]models.Feedback, error) {
	if _, err := s.accounts.GetAccount(ctx, receiverID); err != nil {
		return nil, translate(err)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.repo.ListFeedbackByReceiver(ctx, receiverID, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// MatchRewardKey ключ идемпотентности награды за матч.
func MatchRewardKey(matchID uuid.UUID) string {
	return validation.MatchRewardKeyPrefix + matchID.String()
}

// GetFeedback отзыв по матчу, виден тем же, кому виден матч.
func (s *MatchService) GetFeedback(ctx context.Context, matchID, actingUserID uuid.UUID, role string) (*models.Feedback, error) {
	if _, err := s.GetMatch(ctx, matchID, actingUserID, role); err != nil {
		return nil, err
	}
	fb, err := s.repo.GetFeedback(ctx, matchID)
	if err != nil {
		return nil, translate(err)
	}
	return fb, nil
}
