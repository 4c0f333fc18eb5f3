package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
)

type fakeRepo struct {
	obs    []analytics.Observation
	states []string
	err    error

	byStateCalls []string
}

func (f *fakeRepo) Close() {}

func (f *fakeRepo) SelectObservations(context.Context) ([]analytics.Observation, error) {
	return f.obs, f.err
}

func (f *fakeRepo) SelectObservationsByState(_ context.Context, state string) ([]analytics.Observation, error) {
	f.byStateCalls = append(f.byStateCalls, state)
	if f.err != nil {
		return nil, f.err
	}
	var out []analytics.Observation
	for _, o := range f.obs {
		if o.State != nil && *o.State == state {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) DistinctStates(context.Context) ([]string, error) {
	return f.states, f.err
}

func obs(state, category, negotiatedType string) analytics.Observation {
	o := analytics.Observation{}
	if state != "" {
		o.State = analytics.StringPtr(state)
	}
	if category != "" {
		o.Category = analytics.StringPtr(category)
	}
	if negotiatedType != "" {
		o.NegotiatedType = analytics.StringPtr(negotiatedType)
	}
	return o
}

func sampleRepo() *fakeRepo {
	return &fakeRepo{
		obs: []analytics.Observation{
			obs("Ohio", "Gel", "negotiated"),
			obs("Ohio", "Gel", "negotiated"),
			obs("Ohio", "Patch", "percentage"),
			obs("Texas", "Gel", "negotiated"),
			obs("Puerto Rico", "Gel", "negotiated"),
			obs("", "Gel", "negotiated"),
		},
		states: []string{"Ohio", "Puerto Rico", "Texas"},
	}
}

func cell(t *testing.T, v *View, rowKey, column string) any {
	t.Helper()
	ci, err := v.Table.ColumnIndex(column)
	if err != nil {
		t.Fatalf("column %q: %v", column, err)
	}
	for _, row := range v.Table.Rows {
		if row[0] == rowKey {
			return row[ci]
		}
	}
	t.Fatalf("row %q not found in %v", rowKey, v.Table.Rows)
	return nil
}

func TestOverview(t *testing.T) {
	svc := New(sampleRepo(), nil)

	v, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if got := v.Table.Columns; len(got) != 3 || got[0] != "state" || got[1] != "count" || got[2] != "state_code" {
		t.Fatalf("columns = %v", got)
	}
	// Puerto Rico dropped, NULL state excluded.
	if v.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", v.Table.Len())
	}
	if got := cell(t, v, "Ohio", "count"); got != float64(3) {
		t.Errorf("Ohio count = %v, want 3", got)
	}
	if got := cell(t, v, "Ohio", "state_code"); got != "OH" {
		t.Errorf("Ohio code = %v", got)
	}
	if len(v.Dropped) != 1 || v.Dropped[0] != "Puerto Rico" {
		t.Errorf("dropped = %v, want [Puerto Rico]", v.Dropped)
	}
}

func TestCategories(t *testing.T) {
	svc := New(sampleRepo(), nil)

	v, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}

	// Ohio has 2 Gel + 1 Patch observations.
	if got := cell(t, v, "Ohio", "count"); got != float64(3) {
		t.Errorf("Ohio = %v, want 3", got)
	}
	if got := cell(t, v, "Texas", "count"); got != float64(1) {
		t.Errorf("Texas = %v, want 1", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	repo := sampleRepo()
	svc := New(repo, nil)

	v, err := svc.CategoryBreakdown(context.Background(), "Ohio")
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}
	if len(repo.byStateCalls) != 1 || repo.byStateCalls[0] != "Ohio" {
		t.Fatalf("byState calls = %v", repo.byStateCalls)
	}

	// Sorted by count descending: Gel (2) before Patch (1).
	if v.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", v.Table.Len())
	}
	if v.Table.Rows[0][0] != "Gel" || v.Table.Rows[1][0] != "Patch" {
		t.Errorf("order = %v", v.Table.Rows)
	}
}

func TestNegotiatedTypes(t *testing.T) {
	svc := New(sampleRepo(), nil)

	v, err := svc.NegotiatedTypes(context.Background())
	if err != nil {
		t.Fatalf("NegotiatedTypes: %v", err)
	}

	if got := cell(t, v, "Ohio", "negotiated"); got != 2 {
		t.Errorf("Ohio negotiated = %v, want 2", got)
	}
	if got := cell(t, v, "Ohio", "percentage"); got != 1 {
		t.Errorf("Ohio percentage = %v, want 1", got)
	}
	if got := cell(t, v, "Ohio", "total"); got != 3 {
		t.Errorf("Ohio total = %v, want 3", got)
	}
	// Zero-filled cell: Texas never saw "percentage".
	if got := cell(t, v, "Texas", "percentage"); got != 0 {
		t.Errorf("Texas percentage = %v, want 0", got)
	}
	if got := cell(t, v, "Texas", "state_code"); got != "TX" {
		t.Errorf("Texas code = %v", got)
	}
	if len(v.Dropped) != 1 || v.Dropped[0] != "Puerto Rico" {
		t.Errorf("dropped = %v", v.Dropped)
	}
}

func TestNegotiatedTypeBreakdown(t *testing.T) {
	svc := New(sampleRepo(), nil)

	v, err := svc.NegotiatedTypeBreakdown(context.Background(), "Ohio")
	if err != nil {
		t.Fatalf("NegotiatedTypeBreakdown: %v", err)
	}

	// Sorted by category ascending.
	if v.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", v.Table.Len())
	}
	if v.Table.Rows[0][0] != "Gel" || v.Table.Rows[1][0] != "Patch" {
		t.Errorf("order = %v", v.Table.Rows)
	}
	if got := cell(t, v, "Gel", "negotiated"); got != 2 {
		t.Errorf("Gel negotiated = %v, want 2", got)
	}
	if got := cell(t, v, "Patch", "total"); got != 1 {
		t.Errorf("Patch total = %v, want 1", got)
	}
}

func TestStates(t *testing.T) {
	svc := New(sampleRepo(), nil)

	states, err := svc.States(context.Background())
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("states = %v", states)
	}
}

func TestViewPropagatesRepoError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	svc := New(repo, nil)

	if _, err := svc.Overview(context.Background()); err == nil {
		t.Error("Overview: want error")
	}
	if _, err := svc.NegotiatedTypes(context.Background()); err == nil {
		t.Error("NegotiatedTypes: want error")
	}
	if _, err := svc.CategoryBreakdown(context.Background(), "Ohio"); err == nil {
		t.Error("CategoryBreakdown: want error")
	}
	if _, err := svc.States(context.Background()); err == nil {
		t.Error("States: want error")
	}
}

func TestEmptyWarehouse(t *testing.T) {
	svc := New(&fakeRepo{}, nil)

	v, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if v.Table.Len() != 0 {
		t.Errorf("rows = %d, want 0", v.Table.Len())
	}
	if len(v.Table.Columns) == 0 {
		t.Error("empty view should still carry columns")
	}
}
