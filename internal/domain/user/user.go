package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateUsername surfaces the unique constraint on username.
	// Registration relies on the constraint, not on check-then-write.
	ErrDuplicateUsername = errors.New("username already taken")
)
