package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account хранит баланс токенов и агрегаты пользователя.
type Account struct {
	ID                uuid.UUID       `db:"id" json:"account_id"`
	Role              string          `db:"role" json:"role"`
	Balance           int64           `db:"balance" json:"balance"`
	CompletedServices int64           `db:"completed_services" json:"completed_services"`
	TotalRatingSum    int64           `db:"total_rating_sum" json:"total_rating_sum"`
	WeeklyRating      decimal.Decimal `db:"weekly_rating" json:"weekly_rating"`
	Seq               int64           `db:"seq" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// AccountAudit сравнивает сохранённый баланс с суммой записей журнала.
type AccountAudit struct {
	AccountID  uuid.UUID `json:"account_id"`
	Balance    int64     `json:"balance"`
	LedgerSum  int64     `json:"ledger_sum"`
	EntryCount int64     `json:"entry_count"`
	Consistent bool      `json:"consistent"`
}
