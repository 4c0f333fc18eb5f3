// Package warehouse provides read access to the pricing warehouse.
//
// The dashboard core never opens connections itself: it receives a
// Repository constructed from an explicit Config, and the repository owns
// the connection lifecycle (open and ping at construction, Close on every
// exit path). Backends register themselves by kind, mirroring how storage
// backends are selected elsewhere in this codebase.
package warehouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
)

// DefaultTable is the combined all-states observation table.
const DefaultTable = "pricing_observations"

// Config selects and parameterizes a warehouse backend.
//
// Edge cases:
//   - Kind must match a registered backend kind ("postgres", "sqlite",
//     "mssql").
//   - DSN is passed through to the backend; validation is backend-specific.
//   - Table defaults to DefaultTable when empty.
type Config struct {
	Kind  string `json:"kind"`
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// TableOrDefault returns the configured observation table name.
func (c Config) TableOrDefault() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Repository is the backend-agnostic read interface the dashboard uses.
//
// All methods honor ctx for cancellation and deadlines; the transforms
// downstream are pure and carry no cancellation of their own.
type Repository interface {
	// Close releases backend resources. Call once, on every exit path.
	Close()

	// SelectObservations streams the full observation set as flat rows.
	// NULL columns come back as nil fields; filtering them is the
	// transform layer's job, not the query's.
	SelectObservations(ctx context.Context) ([]analytics.Observation, error)

	// SelectObservationsByState returns the observations for one state.
	SelectObservationsByState(ctx context.Context, state string) ([]analytics.Observation, error)

	// DistinctStates returns the distinct non-null state names, sorted.
	DistinctStates(ctx context.Context) ([]string, error)
}

// Loader is implemented by backends that can also receive observations
// (used by the ingest command and by tests). Read-only backends need not
// implement it.
type Loader interface {
	EnsureSchema(ctx context.Context) error
	InsertObservations(ctx context.Context, rows []analytics.Observation) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Backend packages call this
// from init(); selecting a backend then only requires a blank import.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Duplicate
//     registration is a programming error and should fail fast.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("warehouse: Register called with empty kind")
	}
	if f == nil {
		panic("warehouse: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("warehouse: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository for the configured backend kind.
//
// Errors:
//   - If cfg.Kind is empty or not registered.
//   - Whatever the backend factory returns (bad DSN, unreachable server).
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("warehouse: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("warehouse: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Rows is the minimal row-iteration surface shared by database/sql and pgx
// result sets, so observation scanning is written once.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// CollectObservations scans (state, category, negotiated_type) rows into
// observations, preserving NULLs as nil fields.
func CollectObservations(rows Rows) ([]analytics.Observation, error) {
	var out []analytics.Observation
	for rows.Next() {
		var state, category, negotiatedType *string
		if err := rows.Scan(&state, &category, &negotiatedType); err != nil {
			return nil, err
		}
		out = append(out, analytics.Observation{
			State:          state,
			Category:       category,
			NegotiatedType: negotiatedType,
		})
	}
	return out, rows.Err()
}

// CollectStrings scans a single-column string result set.
func CollectStrings(rows Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
