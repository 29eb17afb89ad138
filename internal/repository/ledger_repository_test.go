package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var entryColumns = []string{"id", "account_id", "amount", "kind", "description", "balance_after", "idempotency_key", "created_at"}

var accountColumns = []string{"id", "role", "balance", "completed_services", "total_rating_sum", "weekly_rating", "seq", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func noRetry() common.Retryer {
	return common.Retryer{Attempts: 1}
}

func TestLedgerRepository_Apply_Credit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db).WithRetryer(noRetry())
	accountID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = balance + $2")).
		WithArgs(accountID, int64(25)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(35)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(sqlmock.AnyArg(), accountID, int64(25), "EARNED", "match reward", int64(35), nil).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), accountID.String(), int64(25), "EARNED", "match reward", int64(35), nil, now))
	mock.ExpectCommit()

	res, err := repo.Apply(context.Background(), models.LedgerMutation{
		AccountID:   accountID,
		Amount:      25,
		Kind:        valueobject.EntryKindEarned,
		Description: "match reward",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(35), res.Balance)
	assert.Equal(t, int64(35), res.Entry.BalanceAfter)
	assert.Equal(t, valueobject.EntryKindEarned, res.Entry.Kind)
	assert.False(t, res.Replayed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Apply_DebitInsufficientBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = balance - $2")).
		WithArgs(accountID, int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	res, err := repo.Apply(context.Background(), models.LedgerMutation{
		AccountID: accountID,
		Amount:    20,
		Kind:      valueobject.EntryKindSpent,
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Apply_UnknownAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = balance + $2")).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), models.LedgerMutation{
		AccountID: accountID,
		Amount:    5,
		Kind:      valueobject.EntryKindBonus,
	})

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Apply_ReplaysExistingKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	accountID := uuid.New()
	key := "weekly-reward:2024-05-06:" + accountID.String()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ledger_entries WHERE idempotency_key = $1")).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), accountID.String(), int64(100), "BONUS", "weekly", int64(100), key, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM accounts")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(140)))
	mock.ExpectCommit()

	res, err := repo.Apply(context.Background(), models.LedgerMutation{
		AccountID:      accountID,
		Amount:         100,
		Kind:           valueobject.EntryKindBonus,
		IdempotencyKey: key,
	})

	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, int64(140), res.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Apply_KeyReusedForOtherAmount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	accountID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ledger_entries WHERE idempotency_key = $1")).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), accountID.String(), int64(10), "BONUS", "", int64(10), "k1", time.Now()))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), models.LedgerMutation{
		AccountID:      accountID,
		Amount:         99,
		Kind:           valueobject.EntryKindBonus,
		IdempotencyKey: "k1",
	})

	assert.ErrorIs(t, err, ErrKeyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Apply_ConcurrentDuplicateKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db).WithRetryer(noRetry())
	accountID := uuid.New()
	key := "admin-grant-1"
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ledger_entries WHERE idempotency_key = $1")).
		WillReturnRows(sqlmock.NewRows(entryColumns))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = balance + $2")).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(60)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: constraintEntryKey})
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ledger_entries WHERE idempotency_key = $1")).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(uuid.NewString(), accountID.String(), int64(30), "BONUS", "grant", int64(30), key, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM accounts WHERE id = $1")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(accountID.String(), "student", int64(30), int64(0), int64(0), "0", int64(1), now, now))

	res, err := repo.Apply(context.Background(), models.LedgerMutation{
		AccountID:      accountID,
		Amount:         30,
		Kind:           valueobject.EntryKindBonus,
		Description:    "grant",
		IdempotencyKey: key,
	})

	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, int64(30), res.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Audit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)
	accountID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts a")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "ledger_sum", "entry_count"}).
			AddRow(int64(50), int64(50), int64(3)))

	audit, err := repo.Audit(context.Background(), accountID)

	require.NoError(t, err)
	assert.True(t, audit.Consistent)
	assert.Equal(t, int64(3), audit.EntryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_GetAccount_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM accounts WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.GetAccount(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_FindEntryByKey_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db).WithRetryer(common.Retryer{Attempts: 3, Backoff: time.Millisecond})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ledger_entries WHERE idempotency_key = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	_, err := repo.FindEntryByKey(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
