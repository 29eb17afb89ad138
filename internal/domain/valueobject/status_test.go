package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   MatchStatus
		to     MatchStatus
		direct bool
		want   bool
	}{
		{"pending -> accepted", MatchStatusPending, MatchStatusAccepted, false, true},
		{"pending -> rejected", MatchStatusPending, MatchStatusRejected, false, true},
		{"pending -> completed без прямого завершения", MatchStatusPending, MatchStatusCompleted, false, false},
		{"pending -> completed с прямым завершением", MatchStatusPending, MatchStatusCompleted, true, true},
		{"accepted -> completed", MatchStatusAccepted, MatchStatusCompleted, false, true},
		{"accepted -> rejected", MatchStatusAccepted, MatchStatusRejected, true, false},
		{"rejected -> completed", MatchStatusRejected, MatchStatusCompleted, true, false},
		{"completed -> completed", MatchStatusCompleted, MatchStatusCompleted, true, false},
		{"неизвестный статус", MatchStatus("ARCHIVED"), MatchStatusCompleted, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to, tt.direct))
		})
	}
}

func TestMatchStatus_IsTerminal(t *testing.T) {
	assert.True(t, MatchStatusRejected.IsTerminal())
	assert.True(t, MatchStatusCompleted.IsTerminal())
	assert.False(t, MatchStatusPending.IsTerminal())
	assert.False(t, MatchStatusAccepted.IsTerminal())
}

func TestOpenStatuses(t *testing.T) {
	assert.Equal(t, []MatchStatus{MatchStatusAccepted}, OpenStatuses(MatchStatusCompleted, false))
	assert.Equal(t, []MatchStatus{MatchStatusPending, MatchStatusAccepted}, OpenStatuses(MatchStatusCompleted, true))
	assert.Equal(t, []MatchStatus{MatchStatusPending}, OpenStatuses(MatchStatusRejected, true))
}

func TestNewEntryKind(t *testing.T) {
	kind, err := NewEntryKind("penalty")
	assert.NoError(t, err)
	assert.Equal(t, EntryKindPenalty, kind)
	assert.True(t, kind.IsDebit())
	assert.Equal(t, int64(-5), kind.Signed(5))

	_, err = NewEntryKind("GIFT")
	assert.Error(t, err)
}
