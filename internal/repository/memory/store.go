// Package memory хранит данные в памяти процесса. Используется при STORAGE_DRIVER=memory и в тестах.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
)

// Store реализует те же контракты, что и репозитории PostgreSQL.
//
// Порядок захвата блокировок: matchMu, затем мьютекс аккаунта, затем keysMu.
// Операции над разными аккаунтами не блокируют друг друга.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*accountCell
	seq      int64

	keysMu sync.Mutex
	keys   map[string]*models.LedgerEntry

	matchMu  sync.Mutex
	matches  map[uuid.UUID]*models.Match
	feedback map[uuid.UUID]*models.Feedback

	runsMu sync.Mutex
	runs   map[string]*models.DistributionRun

	now func() time.Time
}

type accountCell struct {
	mu      sync.Mutex
	account models.Account
	entries []models.LedgerEntry
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*accountCell),
		keys:     make(map[string]*models.LedgerEntry),
		matches:  make(map[uuid.UUID]*models.Match),
		feedback: make(map[uuid.UUID]*models.Feedback),
		runs:     make(map[string]*models.DistributionRun),
		now:      time.Now,
	}
}

// SetClock подменяет источник времени для created_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) cell(id uuid.UUID) (*accountCell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.accounts[id]
	return c, ok
}

func (s *Store) cells() []*accountCell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*accountCell, 0, len(s.accounts))
	for _, c := range s.accounts {
		out = append(out, c)
	}
	return out
}
