package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEntryNotFound       = errors.New("ledger entry not found")
	ErrKeyConflict         = errors.New("idempotency key reused with different payload")
)

// constraintEntryKey имя уникального индекса по idempotency_key.
const constraintEntryKey = "ledger_entries_idempotency_key_key"

type LedgerRepository struct {
	db    *sqlx.DB
	retry common.Retryer
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db, retry: common.DefaultRetryer}
}

// WithRetryer задаёт политику повторов для чтений.
func (r *LedgerRepository) WithRetryer(retry common.Retryer) *LedgerRepository {
	r.retry = retry
	return r
}

// OpenAccount создаёт аккаунт с нулевым балансом. Повторный вызов возвращает существующий.
func (r *LedgerRepository) OpenAccount(ctx context.Context, id uuid.UUID, role string) (*models.Account, bool, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (id, role)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
		RETURNING *
	`, id, role)
	if err == nil {
		return &account, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("ledger repository: open account %w", err)
	}

	existing, err := r.GetAccount(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetAccount возвращает аккаунт по ID.
func (r *LedgerRepository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account *models.Account
	err := r.retry.Do(ctx, "ledger.get_account", func() error {
		var err error
		account, err = common.GetByID[models.Account](ctx, r.db, "accounts", id, ErrAccountNotFound)
		return err
	}, ErrAccountNotFound)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Apply атомарно применяет начисление или списание и пишет запись журнала.
func (r *LedgerRepository) Apply(ctx context.Context, m models.LedgerMutation) (*models.LedgerResult, error) {
	var result *models.LedgerResult
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := applyMutation(ctx, tx, m)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		// Параллельный запрос с тем же ключом успел закоммитить первым.
		if m.IdempotencyKey != "" && common.IsUniqueViolation(err, constraintEntryKey) {
			return r.replay(ctx, m)
		}
		return nil, err
	}
	return result, nil
}

func (r *LedgerRepository) replay(ctx context.Context, m models.LedgerMutation) (*models.LedgerResult, error) {
	entry, err := r.FindEntryByKey(ctx, m.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if err := matchesMutation(entry, m); err != nil {
		return nil, err
	}
	account, err := r.GetAccount(ctx, entry.AccountID)
	if err != nil {
		return nil, err
	}
	return &models.LedgerResult{Entry: entry, Balance: account.Balance, Replayed: true}, nil
}

// FindEntryByKey ищет запись по ключу идемпотентности.
func (r *LedgerRepository) FindEntryByKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := r.retry.Do(ctx, "ledger.find_entry", func() error {
		var err error
		entry, err = common.GetByField[models.LedgerEntry](ctx, r.db, "ledger_entries", "idempotency_key", key, ErrEntryNotFound)
		return err
	}, ErrEntryNotFound)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries возвращает историю аккаунта, новые записи первыми.
func (r *LedgerRepository) ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := r.retry.Do(ctx, "ledger.list_entries", func() error {
		entries = entries[:0]
		return r.db.SelectContext(ctx, &entries, `
			SELECT * FROM ledger_entries WHERE account_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3
		`, accountID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list entries %w", err)
	}
	return entries, nil
}

// Audit сверяет баланс аккаунта с суммой его записей.
func (r *LedgerRepository) Audit(ctx context.Context, accountID uuid.UUID) (*models.AccountAudit, error) {
	var row struct {
		Balance    int64 `db:"balance"`
		LedgerSum  int64 `db:"ledger_sum"`
		EntryCount int64 `db:"entry_count"`
	}
	err := r.retry.Do(ctx, "ledger.audit", func() error {
		return r.db.GetContext(ctx, &row, `
			SELECT a.balance,
				COALESCE(SUM(CASE WHEN e.kind IN ('EARNED', 'BONUS') THEN e.amount ELSE -e.amount END), 0) AS ledger_sum,
				COUNT(e.id) AS entry_count
			FROM accounts a
			LEFT JOIN ledger_entries e ON e.account_id = a.id
			WHERE a.id = $1
			GROUP BY a.id, a.balance
		`, accountID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ledger repository: audit %w", err)
	}
	return &models.AccountAudit{
		AccountID:  accountID,
		Balance:    row.Balance,
		LedgerSum:  row.LedgerSum,
		EntryCount: row.EntryCount,
		Consistent: row.Balance == row.LedgerSum,
	}, nil
}

// applyMutation выполняет операцию внутри транзакции вызывающего.
// Баланс меняется условным UPDATE, поэтому проверка и запись атомарны для аккаунта.
func applyMutation(ctx context.Context, tx *sqlx.Tx, m models.LedgerMutation) (*models.LedgerResult, error) {
	if m.IdempotencyKey != "" {
		var existing models.LedgerEntry
		err := tx.GetContext(ctx, &existing, `SELECT * FROM ledger_entries WHERE idempotency_key = $1`, m.IdempotencyKey)
		if err == nil {
			if err := matchesMutation(&existing, m); err != nil {
				return nil, err
			}
			var balance int64
			if err := tx.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE id = $1`, existing.AccountID); err != nil {
				return nil, fmt.Errorf("ledger repository: replay balance %w", err)
			}
			return &models.LedgerResult{Entry: &existing, Balance: balance, Replayed: true}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ledger repository: lookup key %w", err)
		}
	}

	var balance int64
	var err error
	if m.Kind.IsDebit() {
		err = tx.GetContext(ctx, &balance, `
			UPDATE accounts SET balance = balance - $2, updated_at = NOW()
			WHERE id = $1 AND balance >= $2
			RETURNING balance
		`, m.AccountID, m.Amount)
	} else {
		err = tx.GetContext(ctx, &balance, `
			UPDATE accounts SET balance = balance + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING balance
		`, m.AccountID, m.Amount)
	}
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ledger repository: update balance %w", err)
		}
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, m.AccountID); err != nil {
			return nil, fmt.Errorf("ledger repository: check account %w", err)
		}
		if !exists {
			return nil, ErrAccountNotFound
		}
		return nil, ErrInsufficientBalance
	}

	var entry models.LedgerEntry
	err = tx.GetContext(ctx, &entry, `
		INSERT INTO ledger_entries (id, account_id, amount, kind, description, balance_after, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, uuid.New(), m.AccountID, m.Amount, m.Kind, m.Description, balance, nullableKey(m.IdempotencyKey))
	if err != nil {
		return nil, fmt.Errorf("ledger repository: insert entry %w", err)
	}

	return &models.LedgerResult{Entry: &entry, Balance: balance}, nil
}

// matchesMutation проверяет, что ключ повторно используется для той же операции.
func matchesMutation(entry *models.LedgerEntry, m models.LedgerMutation) error {
	if entry.AccountID != m.AccountID || entry.Amount != m.Amount || entry.Kind != m.Kind {
		return ErrKeyConflict
	}
	return nil
}

func nullableKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}
