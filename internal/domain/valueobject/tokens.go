package valueobject

import "github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"

// MaxTokenAmount ограничивает одну операцию, чтобы сумма не переполняла BIGINT.
const MaxTokenAmount int64 = 1_000_000_000

// NewTokenAmount проверяет сумму операции в токенах.
func NewTokenAmount(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperror.Validation("amount", "сумма должна быть положительной")
	}
	if amount > MaxTokenAmount {
		return 0, apperror.Validation("amount", "сумма слишком большая")
	}
	return amount, nil
}

// NewRating проверяет оценку по шкале 1..5.
func NewRating(rating int) (int, error) {
	if rating < 1 || rating > 5 {
		return 0, apperror.Validation("rating", "рейтинг должен быть от 1 до 5")
	}
	return rating, nil
}
