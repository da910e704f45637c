package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/statementhub/internal/domain/statement"
	"github.com/google/uuid"
)

// StatementsRepo is the in-memory counterpart of the postgres repo.
// Values are stored by copy, so callers can never mutate a saved record.
type StatementsRepo struct {
	mu    sync.RWMutex
	items map[string]statement.Statement
}

func NewStatementsRepo() *StatementsRepo {
	return &StatementsRepo{
		items: make(map[string]statement.Statement),
	}
}

func (r *StatementsRepo) Save(ctx context.Context, s statement.Statement) (statement.Statement, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.items[s.ID] = s
	r.mu.Unlock()

	return s, nil
}

func (r *StatementsRepo) ListByOwner(ctx context.Context, ownerID string, limit int, afterCreatedAt time.Time, afterID string) ([]statement.Statement, bool, error) {
	r.mu.RLock()

	owned := make([]statement.Statement, 0)

	for _, s := range r.items {
		if s.UserID == ownerID {
			owned = append(owned, s)
		}
	}

	r.mu.RUnlock()

	// newest first, id as tiebreaker, matching the postgres ordering
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if !afterCreatedAt.IsZero() && afterID != "" {
		cut := 0
		for i, s := range owned {
			if s.CreatedAt.Before(afterCreatedAt) ||
				(s.CreatedAt.Equal(afterCreatedAt) && s.ID < afterID) {
				cut = i
				break
			}
			cut = len(owned)
		}
		owned = owned[cut:]
	}

	hasMore := false

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
		hasMore = true
	}

	return owned, hasMore, nil
}

func (r *StatementsRepo) GetByID(ctx context.Context, id, ownerID string) (statement.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]

	if !ok || s.UserID != ownerID {
		return statement.Statement{}, statement.ErrNotFound
	}

	return s, nil
}

func (r *StatementsRepo) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]

	if !ok || s.UserID != ownerID {
		return statement.ErrNotFound
	}

	delete(r.items, id)

	return nil
}
