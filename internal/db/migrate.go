package db

import (
	"context"
	"database/sql"

	"github.com/geocoder89/statementhub/internal/db/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations. goose works over
// database/sql, so a separate short-lived connection is opened here rather
// than reusing the pgx pool.
func RunMigrations(ctx context.Context, dbURL string) error {
	sqldb, err := sql.Open("pgx", dbURL)

	if err != nil {
		return err
	}

	defer sqldb.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, sqldb, ".")
}
