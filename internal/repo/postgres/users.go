package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/statementhub/internal/domain/user"
	"github.com/geocoder89/statementhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create inserts the new user and relies on the unique constraint on
// username to reject duplicates atomically (no check-then-write race).
func (r *UsersRepo) Create(ctx context.Context, username, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrDuplicateUsername
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_username", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, username, password_hash, created_at, updated_at
			 FROM users
			 WHERE username = $1`,
			username,
		).Scan(
			&u.ID,
			&u.Username,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, username, password_hash, created_at, updated_at
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.Username,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
