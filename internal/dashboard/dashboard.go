// Package dashboard builds the pricing heat-map views from warehouse
// observations. Each view method runs one warehouse query, pushes the rows
// through the analytics pipeline, and returns a renderable table plus the
// state names the choropleth mapping dropped.
package dashboard

import (
	"context"
	"time"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
	"github.com/Sagar-cesta/heatmap2/internal/metrics"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"
)

// Logger is the minimal logging seam; *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// View is a rendered dashboard table. Dropped lists the state names removed
// because they have no two-letter code, one entry per dropped row.
type View struct {
	Name    string           `json:"name"`
	Table   *analytics.Table `json:"table"`
	Dropped []string         `json:"dropped,omitempty"`
}

// Service computes dashboard views.
type Service struct {
	Repo warehouse.Repository
	Log  Logger
}

// New returns a Service. A nil logger disables logging.
func New(repo warehouse.Repository, logger Logger) *Service {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Service{Repo: repo, Log: logger}
}

// Overview counts observations per state for the nationwide heat map.
// Columns: state, count, state_code.
func (s *Service) Overview(ctx context.Context) (*View, error) {
	return s.view(ctx, "overview", func(ctx context.Context) (*analytics.Table, []string, error) {
		obs, err := s.selectAll(ctx)
		if err != nil {
			return nil, nil, err
		}
		counts, err := analytics.CountByKeys(obs, analytics.FieldState)
		if err != nil {
			return nil, nil, err
		}
		return s.mapStates(counts)
	})
}

// Categories sums per-category observation counts up to one value per state
// for the category heat map. Columns: state, count, state_code.
func (s *Service) Categories(ctx context.Context) (*View, error) {
	return s.view(ctx, "categories", func(ctx context.Context) (*analytics.Table, []string, error) {
		obs, err := s.selectAll(ctx)
		if err != nil {
			return nil, nil, err
		}
		counts, err := analytics.CountByKeys(obs, analytics.FieldState, analytics.FieldCategory)
		if err != nil {
			return nil, nil, err
		}
		perState, err := analytics.GroupSum(counts, string(analytics.FieldState), analytics.ColumnCount)
		if err != nil {
			return nil, nil, err
		}
		return s.mapStates(perState)
	})
}

// CategoryBreakdown counts observations per category within one state,
// largest first. Columns: category, count.
func (s *Service) CategoryBreakdown(ctx context.Context, state string) (*View, error) {
	return s.view(ctx, "category_breakdown", func(ctx context.Context) (*analytics.Table, []string, error) {
		obs, err := s.selectByState(ctx, state)
		if err != nil {
			return nil, nil, err
		}
		counts, err := analytics.CountByKeys(obs, analytics.FieldCategory)
		if err != nil {
			return nil, nil, err
		}
		sorted, err := analytics.SortBy(counts, analytics.ColumnCount, true)
		if err != nil {
			return nil, nil, err
		}
		return sorted, nil, nil
	})
}

// NegotiatedTypes cross-tabulates states against negotiated types, appends
// a per-state total, and maps state codes. Columns: state, one column per
// negotiated type, total, state_code.
func (s *Service) NegotiatedTypes(ctx context.Context) (*View, error) {
	return s.view(ctx, "negotiated_types", func(ctx context.Context) (*analytics.Table, []string, error) {
		obs, err := s.selectAll(ctx)
		if err != nil {
			return nil, nil, err
		}
		counts, err := analytics.CountByKeys(obs, analytics.FieldState, analytics.FieldNegotiatedType)
		if err != nil {
			return nil, nil, err
		}
		grid, err := analytics.Pivot(counts, string(analytics.FieldState), string(analytics.FieldNegotiatedType), analytics.ColumnCount)
		if err != nil {
			return nil, nil, err
		}
		totaled, err := analytics.AddTotal(grid, string(analytics.FieldState), "")
		if err != nil {
			return nil, nil, err
		}
		return s.mapStates(totaled)
	})
}

// NegotiatedTypeBreakdown cross-tabulates categories against negotiated
// types within one state, sorted by category. Columns: category, one column
// per negotiated type, total.
func (s *Service) NegotiatedTypeBreakdown(ctx context.Context, state string) (*View, error) {
	return s.view(ctx, "negotiated_type_breakdown", func(ctx context.Context) (*analytics.Table, []string, error) {
		obs, err := s.selectByState(ctx, state)
		if err != nil {
			return nil, nil, err
		}
		counts, err := analytics.CountByKeys(obs, analytics.FieldCategory, analytics.FieldNegotiatedType)
		if err != nil {
			return nil, nil, err
		}
		grid, err := analytics.Pivot(counts, string(analytics.FieldCategory), string(analytics.FieldNegotiatedType), analytics.ColumnCount)
		if err != nil {
			return nil, nil, err
		}
		totaled, err := analytics.AddTotal(grid, string(analytics.FieldCategory), "")
		if err != nil {
			return nil, nil, err
		}
		sorted, err := analytics.SortBy(totaled, string(analytics.FieldCategory), false)
		if err != nil {
			return nil, nil, err
		}
		return sorted, nil, nil
	})
}

// States lists the distinct state names present in the warehouse, sorted.
// Used to populate the state selector.
func (s *Service) States(ctx context.Context) ([]string, error) {
	start := time.Now()
	states, err := s.Repo.DistinctStates(ctx)
	metrics.ObserveHistogram(metrics.MetricQueryDuration, time.Since(start).Seconds(),
		metrics.Labels{"query": "distinct_states"})
	if err != nil {
		s.Log.Printf("stage=states status=error err=%v", err)
		return nil, err
	}
	return states, nil
}

// view wraps one view computation with logging and metrics.
func (s *Service) view(ctx context.Context, name string, build func(context.Context) (*analytics.Table, []string, error)) (*View, error) {
	start := time.Now()

	table, dropped, err := build(ctx)

	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := metrics.Labels{"view": name, "status": status}
	metrics.IncCounter(metrics.MetricViewsTotal, 1, labels)
	metrics.ObserveHistogram(metrics.MetricViewDuration, time.Since(start).Seconds(), labels)

	if err != nil {
		s.Log.Printf("stage=view name=%s status=error err=%v", name, err)
		return nil, err
	}

	metrics.IncCounter(metrics.MetricRowsTotal, float64(table.Len()), metrics.Labels{"view": name})
	if len(dropped) > 0 {
		metrics.IncCounter(metrics.MetricStatesDroppedTotal, float64(len(dropped)), metrics.Labels{"view": name})
		s.Log.Printf("stage=view name=%s dropped_states=%d names=%v", name, len(dropped), dropped)
	}
	s.Log.Printf("stage=view name=%s rows=%d elapsed=%s", name, table.Len(), time.Since(start).Truncate(time.Millisecond))

	return &View{Name: name, Table: table, Dropped: dropped}, nil
}

func (s *Service) selectAll(ctx context.Context) ([]analytics.Observation, error) {
	start := time.Now()
	obs, err := s.Repo.SelectObservations(ctx)
	metrics.ObserveHistogram(metrics.MetricQueryDuration, time.Since(start).Seconds(),
		metrics.Labels{"query": "select_observations"})
	return obs, err
}

func (s *Service) selectByState(ctx context.Context, state string) ([]analytics.Observation, error) {
	start := time.Now()
	obs, err := s.Repo.SelectObservationsByState(ctx, state)
	metrics.ObserveHistogram(metrics.MetricQueryDuration, time.Since(start).Seconds(),
		metrics.Labels{"query": "select_observations_by_state"})
	return obs, err
}

func (s *Service) mapStates(t *analytics.Table) (*analytics.Table, []string, error) {
	return analytics.MapStateCodes(t, string(analytics.FieldState))
}
