package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/http/middleware"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

// IdempotencyHeader заголовок с ключом идемпотентности для изменяющих запросов.
const IdempotencyHeader = "Idempotency-Key"

// CurrentUserID извлекает ID пользователя из контекста gin.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// CurrentUserRole извлекает роль пользователя из контекста gin.
func CurrentUserRole(c *gin.Context) string {
	return c.GetString(middleware.ContextRoleKey)
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Validation(paramName, "неверный формат UUID")
	}
	return parsed, nil
}

// BindJSON разбирает тело запроса. Ошибка разбора становится ошибкой валидации.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Validation("body", "некорректное тело запроса: "+err.Error())
	}
	return nil
}

// IdempotencyKey ключ из заголовка, пустая строка если не передан.
func IdempotencyKey(c *gin.Context) string {
	return c.GetHeader(IdempotencyHeader)
}

// Fail передаёт ошибку в ErrorHandler.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery читает целочисленный query параметр.
// Пустое значение даёт fallback, нечисловое — ошибку валидации.
func ParseIntQuery(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.Validation(key, "ожидается целое число")
	}
	return parsed, nil
}

// GetPagination извлекает limit и offset из query параметров со значениями по умолчанию.
func GetPagination(c *gin.Context) (limit, offset int, err error) {
	if limit, err = ParseIntQuery(c, "limit", 20); err != nil {
		return 0, 0, err
	}
	if offset, err = ParseIntQuery(c, "offset", 0); err != nil {
		return 0, 0, err
	}
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}
