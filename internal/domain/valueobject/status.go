package valueobject

import (
	"strings"

	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "PENDING"
	MatchStatusAccepted  MatchStatus = "ACCEPTED"
	MatchStatusRejected  MatchStatus = "REJECTED"
	MatchStatusCompleted MatchStatus = "COMPLETED"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusRejected, MatchStatusCompleted:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusRejected || s == MatchStatusCompleted
}

// CanTransitionTo проверяет переход по таблице статусов.
// allowDirectCompletion разрешает завершение матча прямо из PENDING.
func (s MatchStatus) CanTransitionTo(newStatus MatchStatus, allowDirectCompletion bool) bool {
	if !s.IsValid() || s.IsTerminal() {
		return false
	}

	transitions := map[MatchStatus][]MatchStatus{
		MatchStatusPending:  {MatchStatusAccepted, MatchStatusRejected},
		MatchStatusAccepted: {MatchStatusCompleted},
	}
	if allowDirectCompletion {
		transitions[MatchStatusPending] = append(transitions[MatchStatusPending], MatchStatusCompleted)
	}

	for _, status := range transitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// OpenStatuses возвращает статусы, из которых матч можно перевести в newStatus.
func OpenStatuses(newStatus MatchStatus, allowDirectCompletion bool) []MatchStatus {
	var out []MatchStatus
	for _, s := range []MatchStatus{MatchStatusPending, MatchStatusAccepted} {
		if s.CanTransitionTo(newStatus, allowDirectCompletion) {
			out = append(out, s)
		}
	}
	return out
}

type EntryKind string

const (
	EntryKindEarned  EntryKind = "EARNED"
	EntryKindSpent   EntryKind = "SPENT"
	EntryKindBonus   EntryKind = "BONUS"
	EntryKindPenalty EntryKind = "PENALTY"
)

func (k EntryKind) IsValid() bool {
	return k.IsCredit() || k.IsDebit()
}

func (k EntryKind) IsCredit() bool {
	return k == EntryKindEarned || k == EntryKindBonus
}

func (k EntryKind) IsDebit() bool {
	return k == EntryKindSpent || k == EntryKindPenalty
}

// Signed возвращает вклад записи в баланс.
func (k EntryKind) Signed(amount int64) int64 {
	if k.IsDebit() {
		return -amount
	}
	return amount
}

func NewEntryKind(kind string) (EntryKind, error) {
	k := EntryKind(strings.ToUpper(kind))
	if !k.IsValid() {
		return "", apperror.Validation("kind", "некорректный тип операции")
	}
	return k, nil
}
