// Package mssql implements warehouse.Repository for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"
)

type Repo struct {
	db    *sql.DB
	table string
}

func init() {
	warehouse.Register("mssql", New)
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repo{db: db, table: msIdent(cfg.TableOrDefault())}, nil
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
	q := fmt.Sprintf(`SELECT state, category, negotiated_type FROM %s WHERE state = @p1`, r.table)
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

// msIdent brackets an identifier per T-SQL quoting rules.
func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
