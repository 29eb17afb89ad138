package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

func (s *Store) OpenAccount(ctx context.Context, id uuid.UUID, role string) (*models.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	if c, ok := s.accounts[id]; ok {
		s.mu.Unlock()
		c.mu.Lock()
		defer c.mu.Unlock()
		acc := c.account
		return &acc, false, nil
	}
	s.seq++
	now := s.now()
	c := &accountCell{account: models.Account{
		ID:        id,
		Role:      role,
		Seq:       s.seq,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.accounts[id] = c
	s.mu.Unlock()

	acc := c.account
	return &acc, true, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s.cell(id)
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.account
	return &acc, nil
}

func (s *Store) Apply(ctx context.Context, m models.LedgerMutation) (*models.LedgerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s.cell(m.AccountID)
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.applyLocked(c, m)
}

// applyLocked вызывается под мьютексом аккаунта c.
// Ключ резервируется до изменения баланса, поэтому откатывать ничего не нужно.
func (s *Store) applyLocked(c *accountCell, m models.LedgerMutation) (*models.LedgerResult, error) {
	balance := c.account.Balance
	if m.Kind.IsDebit() {
		if balance < m.Amount {
			if res, ok, err := s.lookupKey(c, m); ok {
				return res, err
			}
			return nil, repository.ErrInsufficientBalance
		}
		balance -= m.Amount
	} else {
		balance += m.Amount
	}

	now := s.now()
	entry := models.LedgerEntry{
		ID:           uuid.New(),
		AccountID:    m.AccountID,
		Amount:       m.Amount,
		Kind:         m.Kind,
		Description:  m.Description,
		BalanceAfter: balance,
		CreatedAt:    now,
	}

	if m.IdempotencyKey != "" {
		key := m.IdempotencyKey
		entry.IdempotencyKey = &key

		s.keysMu.Lock()
		existing := s.keys[key]
		if existing == nil {
			stored := entry
			s.keys[key] = &stored
		}
		s.keysMu.Unlock()

		if existing != nil {
			return s.replay(c, existing, m)
		}
	}

	c.account.Balance = balance
	c.account.UpdatedAt = now
	c.entries = append(c.entries, entry)

	out := entry
	return &models.LedgerResult{Entry: &out, Balance: balance}, nil
}

// lookupKey отдаёт повтор по ключу, если операция уже была применена.
func (s *Store) lookupKey(c *accountCell, m models.LedgerMutation) (*models.LedgerResult, bool, error) {
	if m.IdempotencyKey == "" {
		return nil, false, nil
	}
	s.keysMu.Lock()
	existing := s.keys[m.IdempotencyKey]
	s.keysMu.Unlock()
	if existing == nil {
		return nil, false, nil
	}
	res, err := s.replay(c, existing, m)
	return res, true, err
}

func (s *Store) replay(c *accountCell, existing *models.LedgerEntry, m models.LedgerMutation) (*models.LedgerResult, error) {
	if existing.AccountID != m.AccountID || existing.Amount != m.Amount || existing.Kind != m.Kind {
		return nil, repository.ErrKeyConflict
	}
	entry := *existing
	return &models.LedgerResult{Entry: &entry, Balance: c.account.Balance, Replayed: true}, nil
}

func (s *Store) FindEntryByKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	e, ok := s.keys[key]
	if !ok {
		return nil, repository.ErrEntryNotFound
	}
	entry := *e
	return &entry, nil
}

func (s *Store) ListEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s.cell(accountID)
	if !ok {
		return []models.LedgerEntry{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []models.LedgerEntry{}
	for i := len(c.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.entries[i])
	}
	return out, nil
}

func (s *Store) Audit(ctx context.Context, accountID uuid.UUID) (*models.AccountAudit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s.cell(accountID)
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum int64
	for i := range c.entries {
		sum += c.entries[i].SignedAmount()
	}
	return &models.AccountAudit{
		AccountID:  accountID,
		Balance:    c.account.Balance,
		LedgerSum:  sum,
		EntryCount: int64(len(c.entries)),
		Consistent: sum == c.account.Balance,
	}, nil
}
