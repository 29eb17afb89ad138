package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы еженедельного распределения.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
)

// DistributionRun запись об обработке недели.
type DistributionRun struct {
	ID              uuid.UUID  `db:"id" json:"run_id"`
	WeekStart       time.Time  `db:"week_start" json:"week_start"`
	Status          string     `db:"status" json:"status"`
	Ranked          int        `db:"ranked" json:"ranked"`
	Distributed     int        `db:"distributed" json:"rewards_distributed"`
	AlreadyCredited int        `db:"already_credited" json:"already_credited"`
	Failed          int        `db:"failed" json:"failed"`
	Attempts        int        `db:"attempts" json:"attempts"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	FinishedAt      *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// DistributionFailure ошибка по одному аккаунту.
type DistributionFailure struct {
	AccountID uuid.UUID `json:"account_id"`
	Rank      int       `json:"rank"`
	Reason    string    `json:"reason"`
}

// DistributionReport итог запуска распределения.
type DistributionReport struct {
	WeekStart          time.Time             `json:"week_start"`
	Ranked             int                   `json:"ranked"`
	RewardsDistributed int                   `json:"rewards_distributed"`
	AlreadyCredited    int                   `json:"already_credited"`
	Failed             int                   `json:"failed"`
	Failures           []DistributionFailure `json:"failures,omitempty"`
}
