package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// GetByID - универсальная функция для получения сущности по ID
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table string, id interface{}, notFoundErr error) (*T, error) {
	return GetByField[T](ctx, q, table, "id", id, notFoundErr)
}

// GetByField - универсальная функция для получения сущности по значению поля
func GetByField[T any](ctx context.Context, q sqlx.QueryerContext, table, field string, value interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field)

	if err := sqlx.GetContext(ctx, q, &entity, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("get by %s from %s: %w", field, table, err)
	}

	return &entity, nil
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Retryer повторяет идемпотентные чтения при сбоях хранилища.
type Retryer struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryer три попытки, первая пауза 50мс, дальше удвоение.
var DefaultRetryer = Retryer{Attempts: 3, Backoff: 50 * time.Millisecond}

func (r Retryer) policy(ctx context.Context) backoff.BackOff {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.Backoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do выполняет fn, пока она не вернёт nil, постоянную ошибку или не кончатся попытки.
// Ошибки из permanent не повторяются (not found и т.п.).
func (r Retryer) Do(ctx context.Context, op string, fn func() error, permanent ...error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err != nil && isPermanent(err, permanent) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("повтор после ошибки хранилища")
	}

	return backoff.RetryNotify(operation, r.policy(ctx), notify)
}

func isPermanent(err error, permanent []error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	for _, p := range permanent {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}
