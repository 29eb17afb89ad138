package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
)

// Match связывает предложение навыка с запросом помощи.
type Match struct {
	ID            uuid.UUID               `db:"id" json:"match_id"`
	SkillOwnerID  uuid.UUID               `db:"skill_owner_id" json:"skill_owner_id"`
	RequesterID   uuid.UUID               `db:"requester_id" json:"requester_id"`
	InitiatorID   uuid.UUID               `db:"initiator_id" json:"initiator_id"`
	Status        valueobject.MatchStatus `db:"status" json:"status"`
	TokensAwarded *int64                  `db:"tokens_awarded" json:"tokens_awarded"`
	CompletionKey *string                 `db:"completion_key" json:"-"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at" json:"updated_at"`
}

// IsParticipant проверяет, что пользователь — одна из сторон матча.
func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return userID == m.SkillOwnerID || userID == m.RequesterID || userID == m.InitiatorID
}

// MatchCompletion команда на завершение матча, исполняемая одной транзакцией.
type MatchCompletion struct {
	MatchID        uuid.UUID
	ActingUserID   uuid.UUID
	Reward         int64
	Rating         *int
	CompletionKey  string
	RewardKey      string
	Description    string
	FromStatuses   []valueobject.MatchStatus
	CompletedAt    time.Time
	RatingWindowAt time.Time
}

// CompletionResult то, что возвращается вызывающему после завершения.
type CompletionResult struct {
	MatchID       uuid.UUID               `json:"match_id"`
	Status        valueobject.MatchStatus `json:"status"`
	TokensAwarded int64                   `json:"tokens_awarded"`
	Feedback      *Feedback               `json:"feedback,omitempty"`
	Replayed      bool                    `json:"replayed,omitempty"`
}
