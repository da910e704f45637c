package db

import (
	"context"
	"errors"

	"github.com/geocoder89/statementhub/internal/config"
	"github.com/geocoder89/statementhub/internal/domain/user"
	"github.com/geocoder89/statementhub/internal/security"
)

// UserCreator is the slice of the users repo the bootstrap seed needs.
type UserCreator interface {
	Create(ctx context.Context, username, passwordHash string) (user.User, error)
}

// EnsureBootstrapUser creates the configured dev account if missing.
// A no-op when the config leaves the credentials empty.
func EnsureBootstrapUser(ctx context.Context, users UserCreator, cfg config.Config) error {
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	hash, err := security.HashPassword(cfg.BootstrapPassword)
	if err != nil {
		return err
	}

	_, err = users.Create(ctx, cfg.BootstrapUsername, hash)
	if errors.Is(err, user.ErrDuplicateUsername) {
		// already seeded on a previous start
		return nil
	}

	return err
}
