package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback оценка, оставленная при завершении матча.
type Feedback struct {
	ID         uuid.UUID `db:"id" json:"feedback_id"`
	MatchID    uuid.UUID `db:"match_id" json:"match_id"`
	GiverID    uuid.UUID `db:"giver_id" json:"giver_id"`
	ReceiverID uuid.UUID `db:"receiver_id" json:"receiver_id"`
	Rating     int       `db:"rating" json:"rating"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
