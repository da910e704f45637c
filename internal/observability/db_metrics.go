package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgErrorClasses maps the SQLSTATE codes the statement store actually runs
// into onto stable label values. Anything else falls back to the raw code.
var pgErrorClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "fk_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

// ObserveDB times a single repository operation and records its outcome under
// the given op label, e.g. "statements.list_by_owner".
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, dbErrorClass(err)).Inc()
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	return err
}

func dbErrorClass(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgErrorClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}

	if strings.Contains(strings.ToLower(err.Error()), "connection") {
		return "connection"
	}

	return "unknown"
}
