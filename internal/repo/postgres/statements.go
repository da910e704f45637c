package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/geocoder89/statementhub/internal/domain/statement"
	"github.com/geocoder89/statementhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatementsRepo persists generated statements. Records are insert-only:
// there is deliberately no UPDATE here, a saved statement never changes.
type StatementsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewStatementsRepo(pool *pgxpool.Pool, prom *observability.Prom) *StatementsRepo {
	return &StatementsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *StatementsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *StatementsRepo) Save(ctx context.Context, s statement.Statement) (statement.Statement, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	err := r.observe("statements.insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO statements
				(id, user_id, project_type, domain, objective, audience, timeline, budget, constraints, statement_text, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			s.ID, s.UserID,
			s.Input.ProjectType, s.Input.Domain, s.Input.Objective,
			s.Input.Audience, s.Input.Timeline, s.Input.Budget, s.Input.Constraints,
			s.Text, s.CreatedAt,
		)
		return err
	})

	if err != nil {
		return statement.Statement{}, err
	}

	return s, nil
}

// ListByOwner pages through the owner's records newest first. The WHERE
// clause pins ownership, so no cross-owner record can ever be returned.
func (r *StatementsRepo) ListByOwner(ctx context.Context, ownerID string, limit int, afterCreatedAt time.Time, afterID string) ([]statement.Statement, bool, error) {
	query := `
		SELECT id, user_id, project_type, domain, objective, audience, timeline, budget, constraints, statement_text, created_at
		FROM statements
		WHERE user_id = $1`

	args := []interface{}{ownerID}

	if !afterCreatedAt.IsZero() && afterID != "" {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, afterCreatedAt, afterID)
	}

	// one extra row tells us whether another page exists
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit+1)

	out := make([]statement.Statement, 0, limit)

	err := r.observe("statements.list_by_owner", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var s statement.Statement

			err = rows.Scan(
				&s.ID, &s.UserID,
				&s.Input.ProjectType, &s.Input.Domain, &s.Input.Objective,
				&s.Input.Audience, &s.Input.Timeline, &s.Input.Budget, &s.Input.Constraints,
				&s.Text, &s.CreatedAt,
			)

			if err != nil {
				return err
			}

			out = append(out, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit

	if hasMore {
		out = out[:limit]
	}

	return out, hasMore, nil
}

// GetByID filters on both id and owner so a record belonging to another
// user is indistinguishable from a missing one.
func (r *StatementsRepo) GetByID(ctx context.Context, id, ownerID string) (statement.Statement, error) {
	var s statement.Statement

	err := r.observe("statements.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, project_type, domain, objective, audience, timeline, budget, constraints, statement_text, created_at
			 FROM statements
			 WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		).Scan(
			&s.ID, &s.UserID,
			&s.Input.ProjectType, &s.Input.Domain, &s.Input.Objective,
			&s.Input.Audience, &s.Input.Timeline, &s.Input.Budget, &s.Input.Constraints,
			&s.Text, &s.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return statement.Statement{}, statement.ErrNotFound
		}

		return statement.Statement{}, err
	}

	return s, nil
}

func (r *StatementsRepo) Delete(ctx context.Context, id, ownerID string) error {
	var tag pgconn.CommandTag

	err := r.observe("statements.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`DELETE FROM statements WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return statement.ErrNotFound
	}

	return nil
}
