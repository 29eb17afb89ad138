package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
)

// LedgerEntry неизменяемая запись журнала токенов.
type LedgerEntry struct {
	ID             uuid.UUID             `db:"id" json:"entry_id"`
	AccountID      uuid.UUID             `db:"account_id" json:"account_id"`
	Amount         int64                 `db:"amount" json:"amount"`
	Kind           valueobject.EntryKind `db:"kind" json:"kind"`
	Description    string                `db:"description" json:"description"`
	BalanceAfter   int64                 `db:"balance_after" json:"balance_after"`
	IdempotencyKey *string               `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

// SignedAmount возвращает вклад записи в баланс.
func (e *LedgerEntry) SignedAmount() int64 {
	return e.Kind.Signed(e.Amount)
}

// LedgerMutation описывает одно начисление или списание.
type LedgerMutation struct {
	AccountID      uuid.UUID
	Amount         int64
	Kind           valueobject.EntryKind
	Description    string
	IdempotencyKey string
}

// LedgerResult результат применения операции к журналу.
type LedgerResult struct {
	Entry    *LedgerEntry `json:"entry"`
	Balance  int64        `json:"balance"`
	Replayed bool         `json:"replayed"`
}
