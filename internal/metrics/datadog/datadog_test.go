package datadog

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/Sagar-cesta/heatmap2/internal/metrics"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) series() []datadogV2.MetricSeries {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []datadogV2.MetricSeries
	for _, p := range f.payloads {
		out = append(out, p.Series...)
	}
	return out
}

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Options{
		JobName:    "test-job",
		Tags:       []string{"service:heatmap"},
		FlushEvery: time.Hour,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		newTicker:  func(d time.Duration) *time.Ticker { return time.NewTicker(time.Hour) },
		submitter:  sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func findSeries(series []datadogV2.MetricSeries, metric string, tagSubstrings ...string) *datadogV2.MetricSeries {
	for i := range series {
		s := series[i]
		if s.Metric != metric {
			continue
		}
		joined := strings.Join(s.Tags, ",")
		ok := true
		for _, sub := range tagSubstrings {
			if !strings.Contains(joined, sub) {
				ok = false
				break
			}
		}
		if ok {
			return &series[i]
		}
	}
	return nil
}

func TestBackend_FlushSubmitsCounters(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter(metrics.MetricViewsTotal, 1, metrics.Labels{"view": "overview", "status": "ok"})
	b.IncCounter(metrics.MetricViewsTotal, 1, metrics.Labels{"view": "overview", "status": "ok"})
	b.IncCounter(metrics.MetricViewsTotal, 1, metrics.Labels{"view": "overview", "status": "error"})
	b.IncCounter(metrics.MetricRowsTotal, 50, metrics.Labels{"view": "overview"})
	b.IncCounter(metrics.MetricStatesDroppedTotal, 2, metrics.Labels{"view": "overview"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series := sub.series()

	views := findSeries(series, "heatmap.views.total", "view:overview", "status:ok")
	if views == nil {
		t.Fatal("missing heatmap.views.total for view:overview status:ok")
	}
	if got := *views.Points[0].Value; got != 2 {
		t.Errorf("views.total = %v, want 2", got)
	}
	if *views.Type != datadogV2.METRICINTAKETYPE_COUNT {
		t.Errorf("views.total type = %v, want count", *views.Type)
	}

	if s := findSeries(series, "heatmap.views.total", "status:error"); s == nil {
		t.Error("missing heatmap.views.total for status:error")
	}

	rows := findSeries(series, "heatmap.rows.total", "view:overview")
	if rows == nil || *rows.Points[0].Value != 50 {
		t.Fatalf("rows.total = %v, want 50", rows)
	}

	dropped := findSeries(series, "heatmap.states_dropped.total", "view:overview")
	if dropped == nil || *dropped.Points[0].Value != 2 {
		t.Fatalf("states_dropped.total = %v, want 2", dropped)
	}
}

func TestBackend_FlushSubmitsPercentiles(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	for i := 1; i <= 100; i++ {
		b.ObserveHistogram(metrics.MetricViewDuration, float64(i)/1000, metrics.Labels{"view": "categories", "status": "ok"})
	}
	b.ObserveHistogram(metrics.MetricQueryDuration, 0.25, metrics.Labels{"query": "select_observations"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series := sub.series()

	p50 := findSeries(series, "heatmap.view.duration_seconds.p50", "view:categories")
	if p50 == nil {
		t.Fatal("missing view duration p50")
	}
	if got := *p50.Points[0].Value; got < 0.049 || got > 0.052 {
		t.Errorf("p50 = %v, want ~0.050", got)
	}

	max := findSeries(series, "heatmap.view.duration_seconds.max", "view:categories")
	if max == nil || *max.Points[0].Value != 0.1 {
		t.Fatalf("max = %v, want 0.1", max)
	}

	samples := findSeries(series, "heatmap.view.duration_seconds.samples", "view:categories")
	if samples == nil || *samples.Points[0].Value != 100 {
		t.Fatalf("samples = %v, want 100", samples)
	}
	if *samples.Type != datadogV2.METRICINTAKETYPE_GAUGE {
		t.Errorf("samples type = %v, want gauge", *samples.Type)
	}

	qp99 := findSeries(series, "heatmap.query.duration_seconds.p99", "query:select_observations")
	if qp99 == nil || *qp99.Points[0].Value != 0.25 {
		t.Fatalf("query p99 = %v, want 0.25", qp99)
	}
}

func TestBackend_FlushResetsBuffers(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter(metrics.MetricViewsTotal, 1, metrics.Labels{"view": "overview", "status": "ok"})
	if err := b.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	// Second flush had nothing buffered; no second payload submitted.
	if got := len(sub.payloads); got != 1 {
		t.Fatalf("payloads = %d, want 1", got)
	}
}

func TestBackend_BaseTagsOnEverySeries(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter(metrics.MetricViewsTotal, 1, metrics.Labels{"view": "overview", "status": "ok"})
	b.ObserveHistogram(metrics.MetricQueryDuration, 0.1, metrics.Labels{"query": "distinct_states"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, s := range sub.series() {
		joined := strings.Join(s.Tags, ",")
		if !strings.Contains(joined, "job:test-job") {
			t.Errorf("%s missing job tag: %v", s.Metric, s.Tags)
		}
		if !strings.Contains(joined, "service:heatmap") {
			t.Errorf("%s missing extra tag: %v", s.Metric, s.Tags)
		}
	}
}

func TestBackend_IgnoresUnknownAndInvalid(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter("some_other_counter", 1, nil)
	b.IncCounter(metrics.MetricViewsTotal, 0, metrics.Labels{"view": "overview"})
	b.IncCounter(metrics.MetricViewsTotal, -1, metrics.Labels{"view": "overview"})
	b.ObserveHistogram(metrics.MetricViewDuration, -0.5, metrics.Labels{"view": "overview"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := len(sub.payloads); got != 0 {
		t.Fatalf("payloads = %d, want 0", got)
	}
}

func TestBackend_PeriodicFlushLoop(t *testing.T) {
	sub := &fakeSubmitter{}
	tick := make(chan time.Time, 1)

	b, err := NewBackend(context.Background(), Options{
		FlushEvery: time.Hour,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		newTicker: func(d time.Duration) *time.Ticker {
			t := time.NewTicker(time.Hour)
			t.C = tick
			return t
		},
		submitter: sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer b.Close()

	b.IncCounter(metrics.MetricViewsTotal, 1, metrics.Labels{"view": "overview", "status": "ok"})
	tick <- time.Now()

	deadline := time.After(2 * time.Second)
	for {
		sub.mu.Lock()
		n := len(sub.payloads)
		sub.mu.Unlock()
		if n == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("flush loop did not submit after tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPercentileNearestRank(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 6},
		{0.9, 9},
		{1, 10},
	}
	for _, c := range cases {
		if got := percentileNearestRank(s, c.p); got != c.want {
			t.Errorf("percentileNearestRank(p=%v) = %v, want %v", c.p, got, c.want)
		}
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Errorf("empty slice = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	got := ParseTagsCSV(" env:prod , service:heatmap ,, ")
	if len(got) != 2 || got[0] != "env:prod" || got[1] != "service:heatmap" {
		t.Fatalf("ParseTagsCSV = %v", got)
	}
	if got := ParseTagsCSV(""); got != nil {
		t.Fatalf("empty input = %v, want nil", got)
	}
}
