package service

// Бонус 12.5 токена за каждую ступень рейтинга выше единицы, хранится дробью.
const (
	ratingBonusNumerator   = 25
	ratingBonusDenominator = 2
)

// ComputeReward считает награду за завершённый матч.
// Без рейтинга это base, с рейтингом base + floor((rating-1) * 12.5).
// Рейтинг должен быть проверен вызывающим.
func ComputeReward(base int64, rating *int) int64 {
	if rating == nil {
		return base
	}
	steps := int64(*rating - 1)
	return base + steps*ratingBonusNumerator/ratingBonusDenominator
}
