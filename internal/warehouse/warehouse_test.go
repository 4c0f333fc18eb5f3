package warehouse

import (
	"context"
	"testing"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
)

type fakeRepo struct{}

func (fakeRepo) Close() {}
func (fakeRepo) SelectObservations(context.Context) ([]analytics.Observation, error) {
	return nil, nil
}
func (fakeRepo) SelectObservationsByState(context.Context, string) ([]analytics.Observation, error) {
	return nil, nil
}
func (fakeRepo) DistinctStates(context.Context) ([]string, error) { return nil, nil }

func TestNew_SelectsRegisteredFactory(t *testing.T) {
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "fake"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := repo.(fakeRepo); !ok {
		t.Fatalf("unexpected repository type %T", repo)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("empty kind: want error")
	}
	if _, err := New(context.Background(), Config{Kind: "no-such-backend"}); err == nil {
		t.Error("unregistered kind: want error")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register should panic")
		}
	}()
	f := func(ctx context.Context, cfg Config) (Repository, error) { return fakeRepo{}, nil }
	Register("dup", f)
	Register("dup", f)
}

func TestConfigTableOrDefault(t *testing.T) {
	if got := (Config{}).TableOrDefault(); got != DefaultTable {
		t.Errorf("default table = %q", got)
	}
	if got := (Config{Table: "combined"}).TableOrDefault(); got != "combined" {
		t.Errorf("table = %q, want combined", got)
	}
}

type sliceRows struct {
	rows [][]any
	i    int
	err  error
}

func (s *sliceRows) Next() bool { return s.i < len(s.rows) }
func (s *sliceRows) Err() error { return s.err }
func (s *sliceRows) Scan(dest ...any) error {
	row := s.rows[s.i]
	s.i++
	for j, d := range dest {
		switch p := d.(type) {
		case **string:
			if row[j] == nil {
				*p = nil
			} else {
				v := row[j].(string)
				*p = &v
			}
		case *string:
			*p = row[j].(string)
		}
	}
	return nil
}

func TestCollectObservations(t *testing.T) {
	rows := &sliceRows{rows: [][]any{
		{"Ohio", "Gel", "negotiated"},
		{"Texas", nil, "percentage"},
		{nil, nil, nil},
	}}

	obs, err := CollectObservations(rows)
	if err != nil {
		t.Fatalf("CollectObservations: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	if obs[0].State == nil || *obs[0].State != "Ohio" {
		t.Errorf("obs[0].State = %v", obs[0].State)
	}
	if obs[1].Category != nil {
		t.Errorf("obs[1].Category = %v, want nil", obs[1].Category)
	}
	if obs[2].State != nil {
		t.Errorf("obs[2].State = %v, want nil", obs[2].State)
	}
}
