package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

type LedgerRepository interface {
	OpenAccount(ctx context.Context, id uuid.UUID, role string) (*models.Account, bool, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Apply(ctx context.Context, m models.LedgerMutation) (*models.LedgerResult, error)
	FindEntryByKey(ctx context.Context, key string) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
	Audit(ctx context.Context, accountID uuid.UUID) (*models.AccountAudit, error)
}

// LedgerService единственная точка изменения балансов.
type LedgerService struct {
	repo  LedgerRepository
	retry common.Retryer
}

func NewLedgerService(repo LedgerRepository, retry common.Retryer) *LedgerService {
	return &LedgerService{repo: repo, retry: retry}
}

// OpenAccount заводит аккаунт с нулевым балансом, повторный вызов ничего не меняет.
func (s *LedgerService) OpenAccount(ctx context.Context, id uuid.UUID, role string) (*models.Account, bool, error) {
	if id == uuid.Nil {
		return nil, false, apperror.Validation("account_id", "некорректный идентификатор аккаунта")
	}
	if role == "" {
		role = models.RoleStudent
	}
	if _, ok := models.ValidRoles[role]; !ok {
		return nil, false, apperror.Validation("role", "недопустимая роль")
	}

	account, created, err := s.repo.OpenAccount(ctx, id, role)
	if err != nil {
		return nil, false, translate(err)
	}
	if created {
		logger.Log.WithFields(logrus.Fields{"account_id": id, "role": role}).Info("аккаунт открыт")
	}
	return account, created, nil
}

// GetAccount возвращает аккаунт вместе с балансом.
func (s *LedgerService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return account, nil
}

// BalanceOf возвращает текущий баланс.
func (s *LedgerService) BalanceOf(ctx context.Context, id uuid.UUID) (int64, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Credit начисляет токены. kind только EARNED или BONUS.
func (s *LedgerService) Credit(ctx context.Context, accountID uuid.UUID, amount int64, kind valueobject.EntryKind, description, key string) (*models.LedgerResult, error) {
	if !kind.IsCredit() {
		return nil, apperror.Validation("kind", "для начисления допустимы только EARNED и BONUS")
	}
	if err := validation.ValidateClientIdempotencyKey(key); err != nil {
		return nil, err
	}
	return s.apply(ctx, accountID, amount, kind, description, key)
}

// Debit списывает токены. kind только SPENT или PENALTY.
func (s *LedgerService) Debit(ctx context.Context, accountID uuid.UUID, amount int64, kind valueobject.EntryKind, description, key string) (*models.LedgerResult, error) {
	if !kind.IsDebit() {
		return nil, apperror.Validation("kind", "для списания допустимы только SPENT и PENALTY")
	}
	if err := validation.ValidateClientIdempotencyKey(key); err != nil {
		return nil, err
	}
	return s.apply(ctx, accountID, amount, kind, description, key)
}

// CreditReward начисляет бонус сервиса под ключом из зарезервированного пространства.
func (s *LedgerService) CreditReward(ctx context.Context, accountID uuid.UUID, amount int64, description, key string) (*models.LedgerResult, error) {
	if key == "" {
		return nil, apperror.Validation("idempotency_key", "для награды нужен ключ идемпотентности")
	}
	if err := validation.ValidateIdempotencyKey(key); err != nil {
		return nil, err
	}
	return s.apply(ctx, accountID, amount, valueobject.EntryKindBonus, description, key)
}

func (s *LedgerService) apply(ctx context.Context, accountID uuid.UUID, amount int64, kind valueobject.EntryKind, description, key string) (*models.LedgerResult, error) {
	if accountID == uuid.Nil {
		return nil, apperror.Validation("account_id", "некорректный идентификатор аккаунта")
	}
	amount, err := valueobject.NewTokenAmount(amount)
	if err != nil {
		return nil, err
	}
	description, err = validation.NormalizeDescription(description)
	if err != nil {
		return nil, err
	}

	mutation := models.LedgerMutation{
		AccountID:      accountID,
		Amount:         amount,
		Kind:           kind,
		Description:    description,
		IdempotencyKey: key,
	}

	var result *models.LedgerResult
	call := func() error {
		res, err := s.repo.Apply(ctx, mutation)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	// Без ключа повтор может списать дважды, поэтому одна попытка.
	if key == "" {
		err = call()
	} else {
		err = s.retry.Do(ctx, "ledger.apply", call, permanentRepoErrors...)
	}
	if err != nil {
		appErr := translate(err)
		if apperror.IsStorageFailure(appErr) {
			logger.Log.WithFields(logrus.Fields{
				"account_id": accountID,
				"kind":       kind,
				"amount":     amount,
			}).WithError(err).Error("не удалось применить операцию к журналу")
		}
		return nil, appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"kind":       kind,
		"amount":     amount,
		"balance":    result.Balance,
		"replayed":   result.Replayed,
	}).Debug("операция журнала применена")
	return result, nil
}

// HasCredit проверяет, что под ключом уже записана операция kind для accountID.
// Запись под тем же ключом с другим аккаунтом или видом считается конфликтом.
func (s *LedgerService) HasCredit(ctx context.Context, key string, accountID uuid.UUID, kind valueobject.EntryKind) (bool, error) {
	entry, err := s.repo.FindEntryByKey(ctx, key)
	if err != nil {
		appErr := translate(err)
		if apperror.IsNotFound(appErr) {
			return false, nil
		}
		return false, appErr
	}
	if entry.AccountID != accountID || entry.Kind != kind {
		return false, apperror.New(apperror.ErrCodeConflict, "ключ идемпотентности уже использован для другой операции")
	}
	return true, nil
}

// ListEntries возвращает историю операций аккаунта.
func (s *LedgerService) ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.repo.ListEntries(ctx, accountID, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

// Audit сверяет баланс с журналом. Расхождение логируется как ошибка.
func (s *LedgerService) Audit(ctx context.Context, accountID uuid.UUID) (*models.AccountAudit, error) {
	audit, err := s.repo.Audit(ctx, accountID)
	if err != nil {
		return nil, translate(err)
	}
	if !audit.Consistent {
		logger.Log.WithFields(logrus.Fields{
			"account_id": accountID,
			"balance":    audit.Balance,
			"ledger_sum": audit.LedgerSum,
		}).Error("баланс расходится с журналом")
	}
	return audit, nil
}
