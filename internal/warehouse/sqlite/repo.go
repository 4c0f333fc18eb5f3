// Package sqlite implements warehouse.Repository for SQLite.
//
// Besides the read interface it implements warehouse.Loader, so the ingest
// command and integration tests can build a real warehouse file (or an
// in-memory one) without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"
)

type Repo struct {
	db    *sql.DB
	table string
}

func init() {
	warehouse.Register("sqlite", New)
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, table: sqlIdent(cfg.TableOrDefault())}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) SelectObservations(ctx context.Context) ([]analytics.Observation, error) {
	q := fmt.Sprintf(`SELECT state, category, negotiated_type FROM %s`, r.table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return warehouse.CollectObservations(rows)
}

func (r *Repo) SelectObservationsByState(ctx context.Context, state string) ([]analytics.Observation, error) {
	q := fmt.Sprintf(`SELECT state, category, negotiated_type FROM %s WHERE state = ?`, r.table)
	rows, err := r.db.QueryContext(ctx, q, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return warehouse.CollectObservations(rows)
}

func (r *Repo) DistinctStates(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(
		`SELECT DISTINCT state FROM %s WHERE state IS NOT NULL ORDER BY state`,
		r.table,
	)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return warehouse.CollectStrings(rows)
}

// EnsureSchema creates the observation table when it does not exist yet.
// Startup stays idempotent: re-running ingest against an existing file is
// safe.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  state TEXT,
  category TEXT,
  negotiated_type TEXT
);`, r.table)
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// InsertObservations appends rows with a single multi-row INSERT.
// nil fields are stored as NULL.
func (r *Repo) InsertObservations(ctx context.Context, rows []analytics.Observation) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(r.table)
	b.WriteString(" (state, category, negotiated_type) VALUES ")

	args := make([]any, 0, len(rows)*3)
	for i, o := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, nullable(o.State), nullable(o.Category), nullable(o.NegotiatedType))
	}

	res, err := r.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// sqlIdent quotes an identifier; SQLite supports "quoted identifiers".
func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
