// Package postgres implements warehouse.Repository on top of a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"
)

type Repo struct {
	pool     *pgxpool.Pool
	table    string
	rawTable string
}

func init() {
	warehouse.Register("postgres", New)
}

// New opens a pool and verifies connectivity before handing the repository
// to the caller. On ping failure the pool is closed; no half-open
// repository ever escapes.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repo{
		pool:     pool,
		table:    pgIdent(cfg.TableOrDefault()),
		rawTable: cfg.TableOrDefault(),
	}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) SelectObservations(ctx context.Context) ([]analytics.Observation, error) {
	q := fmt.Sprintf(
		`SELECT state, category, negotiated_type FROM %s`,
		r.table,
	)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return warehouse.CollectObservations(rows)
}

func (r *Repo) SelectObservationsByState(ctx context.Context, state string) ([]analytics.Observation, error) {
	q := fmt.Sprintf(
		`SELECT state, category, negotiated_type FROM %s WHERE state = $1`,
		r.table,
	)
	rows, err := r.pool.Query(ctx, q, state)
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
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return warehouse.CollectStrings(rows)
}

// EnsureSchema creates the observation table if it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (state TEXT, category TEXT, negotiated_type TEXT)`,
		r.table,
	)
	_, err := r.pool.Exec(ctx, q)
	return err
}

// InsertObservations bulk-loads rows with COPY.
func (r *Repo) InsertObservations(ctx context.Context, rows []analytics.Observation) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{r.rawTable},
		[]string{"state", "category", "negotiated_type"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{rows[i].State, rows[i].Category, rows[i].NegotiatedType}, nil
		}),
	)
}

// pgIdent quotes an identifier so configured table names cannot smuggle SQL.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
