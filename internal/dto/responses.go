package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// BalanceResponse текущий баланс аккаунта.
type BalanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
}

// EntriesResponse страница истории журнала.
type EntriesResponse struct {
	Entries []models.LedgerEntry `json:"entries"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// FeedbackResponse страница полученных отзывов.
type FeedbackResponse struct {
	Feedback []models.Feedback `json:"feedback"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// StandingResponse положение пользователя в рейтинге.
type StandingResponse struct {
	Period models.LeaderboardPeriod `json:"period"`
	Row    *models.LeaderboardRow   `json:"row"`
}
