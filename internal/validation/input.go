package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MaxDescriptionLength    = 500
	MaxIdempotencyKeyLength = 255
)

// Префиксы ключей, которыми сервис помечает собственные начисления.
const (
	MatchRewardKeyPrefix  = "match-reward:"
	WeeklyRewardKeyPrefix = "weekly-reward:"
)

var reservedKeyPrefixes = []string{MatchRewardKeyPrefix, WeeklyRewardKeyPrefix}

// ValidateLength проверяет длину строки в символах.
func ValidateLength(field, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.Validation(field, fmt.Sprintf("%s должен быть не менее %d символов", field, min))
	}
	if max > 0 && length > max {
		return apperror.Validation(field, fmt.Sprintf("%s должен быть не более %d символов", field, max))
	}
	return nil
}

// NormalizeDescription обрезает пробелы и проверяет описание операции журнала.
func NormalizeDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if err := ValidateLength("description", description, 0, MaxDescriptionLength); err != nil {
		return "", err
	}
	for _, r := range description {
		if unicode.IsControl(r) {
			return "", apperror.Validation("description", "описание содержит управляющие символы")
		}
	}
	return description, nil
}

// ValidateIdempotencyKey проверяет ключ идемпотентности. Пустой ключ допустим.
func ValidateIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeyLength {
		return apperror.Validation("idempotency_key", "ключ идемпотентности слишком длинный")
	}
	for _, r := range key {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return apperror.Validation("idempotency_key", "ключ идемпотентности может содержать только печатные ASCII символы без пробелов")
		}
	}
	return nil
}

// ValidateClientIdempotencyKey проверяет ключ, пришедший от клиента.
// Ключи с зарезервированными префиксами принадлежат наградам сервиса.
func ValidateClientIdempotencyKey(key string) error {
	if err := ValidateIdempotencyKey(key); err != nil {
		return err
	}
	for _, prefix := range reservedKeyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return apperror.Validation("idempotency_key", fmt.Sprintf("префикс %q зарезервирован", prefix))
		}
	}
	return nil
}
