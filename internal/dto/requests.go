package dto

import "github.com/google/uuid"

// LedgerMutationRequest тело ручного начисления или списания.
// Kind необязателен: по умолчанию BONUS для начисления и SPENT для списания.
type LedgerMutationRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// CreateMatchRequest represents the request to create a match
type CreateMatchRequest struct {
	SkillOwnerID uuid.UUID `json:"skill_owner_id" binding:"required"`
	RequesterID  uuid.UUID `json:"requester_id" binding:"required"`
}

// CompleteMatchRequest represents the request to complete a match
type CompleteMatchRequest struct {
	Rating *int `json:"rating"`
}

// DistributeRewardsRequest тело ручного запуска недельных наград.
type DistributeRewardsRequest struct {
	WeekStart string `json:"week_start"`
}
