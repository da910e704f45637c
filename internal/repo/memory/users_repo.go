package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/statementhub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is an in-memory credential store used by tests and the dev
// profile. The mutex makes Create atomic, mirroring the DB unique
// constraint on username.
type UsersRepo struct {
	mu    sync.RWMutex
	byID  map[string]user.User
	names map[string]string // username -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:  make(map[string]user.User),
		names: make(map[string]string),
	}
}

func (r *UsersRepo) Create(ctx context.Context, username, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[username]; exists {
		return user.User{}, user.ErrDuplicateUsername
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.byID[u.ID] = u
	r.names[username] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[username]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}
