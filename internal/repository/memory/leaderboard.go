package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
)

func (s *Store) WindowStats(ctx context.Context, window models.Window, role string) ([]models.ContributorStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	byAccount := make(map[uuid.UUID]*models.ContributorStats)
	for _, c := range s.cells() {
		c.mu.Lock()
		if c.account.Role == role {
			byAccount[c.account.ID] = &models.ContributorStats{
				AccountID: c.account.ID,
				Balance:   c.account.Balance,
				Seq:       c.account.Seq,
			}
		}
		c.mu.Unlock()
	}

	for _, fb := range s.feedback {
		if st, ok := byAccount[fb.ReceiverID]; ok && inWindow(fb.CreatedAt, window) {
			st.RatingSum += int64(fb.Rating)
			st.RatingCount++
		}
	}
	for _, m := range s.matches {
		if m.Status != valueobject.MatchStatusCompleted {
			continue
		}
		if st, ok := byAccount[m.SkillOwnerID]; ok && inWindow(m.UpdatedAt, window) {
			st.ServicesCompleted++
		}
	}

	out := make([]models.ContributorStats, 0, len(byAccount))
	for _, st := range byAccount {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func inWindow(t time.Time, w models.Window) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
