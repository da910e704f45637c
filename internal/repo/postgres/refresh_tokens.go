package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/statementhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenInvalid  = errors.New("refresh token revoked or mismatched")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)

type RefreshTokenRow struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *RefreshTokensRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *RefreshTokensRepo) Create(ctx context.Context, tx pgx.Tx, row RefreshTokenRow) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

// GetForUpdate locks the row to prevent concurrent refresh races.
func (r *RefreshTokensRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (RefreshTokenRow, error) {
	var row RefreshTokenRow

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshTokenRow{}, ErrRefreshTokenNotFound
		}

		return RefreshTokenRow{}, err
	}

	return row, nil
}

func (r *RefreshTokensRepo) Revoke(ctx context.Context, tx pgx.Tx, id string, replacedBy *string) error {
	_, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1
	`, id, replacedBy)

	return err
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)

	return err
}

func (r *RefreshTokensRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// Insert stores a freshly issued token row in its own transaction.
func (r *RefreshTokensRepo) Insert(ctx context.Context, row RefreshTokenRow) error {
	return r.observe("refresh_tokens.insert", func() error {
		tx, err := r.BeginTx(ctx)

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		if err := r.Create(ctx, tx, row); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// Rotate atomically revokes the presented token and stores its replacement.
// The row lock prevents two concurrent refreshes from both succeeding.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, presentedHash string, newRow RefreshTokenRow) error {
	return r.observe("refresh_tokens.rotate", func() error {
		tx, err := r.BeginTx(ctx)

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		row, err := r.GetForUpdate(ctx, tx, oldID)

		if err != nil {
			return err
		}

		if row.RevokedAt != nil {
			return ErrRefreshTokenInvalid
		}

		if time.Now().UTC().After(row.ExpiresAt) {
			return ErrRefreshTokenExpired
		}

		// the stored hash must match the presented token (prevents substitution)
		if row.TokenHash != presentedHash {
			return ErrRefreshTokenInvalid
		}

		if err := r.Revoke(ctx, tx, row.ID, &newRow.ID); err != nil {
			return err
		}

		if err := r.Create(ctx, tx, newRow); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// RevokeByID revokes one token, idempotently.
func (r *RefreshTokensRepo) RevokeByID(ctx context.Context, id string) error {
	return r.observe("refresh_tokens.revoke", func() error {
		tx, err := r.BeginTx(ctx)

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		if err := r.Revoke(ctx, tx, id, nil); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}
