package common

import (
	"errors"

	"github.com/lib/pq"
)

// pqUniqueViolation код unique_violation в PostgreSQL.
const pqUniqueViolation = "23505"

// IsUniqueViolation проверяет, что ошибка вызвана нарушением уникального индекса.
// constraint может быть пустым, тогда подходит любой индекс.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
