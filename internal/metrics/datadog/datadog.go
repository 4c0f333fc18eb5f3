// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The backend buffers metrics in memory, submits them on a periodic ticker
// (default once per minute), and submits one final time on Close(). Long
// dashboard processes therefore produce a real time series instead of a
// single spike at shutdown, and short-lived runs still ship their tail.
//
// Concurrency model:
//   - request goroutines call IncCounter/ObserveHistogram at any time
//   - Flush snapshots+resets buffers under a mutex, then submits out-of-lock
//   - the flush loop calls Flush() periodically; Close() stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/Sagar-cesta/heatmap2/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "heatmap2".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls submission cadence. If <= 0, defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; unit tests
	// use them to avoid real submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit metrics. The
// SDK exposes a concrete *datadogV2.MetricsApi; depending on this interface
// instead enables deterministic tests with a fake submitter.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	viewCounts    map[string]float64   // view\x00status -> renders
	rowCounts     map[string]float64   // view -> emitted rows
	droppedCounts map[string]float64   // view -> unmapped states dropped
	viewDur       map[string][]float64 // view\x00status -> seconds
	queryDur      map[string][]float64 // query -> seconds
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush goroutine.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
//   - Client construction does not hit the network; errors surface from
//     Flush().
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "heatmap2"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,

		viewCounts:    make(map[string]float64),
		rowCounts:     make(map[string]float64),
		droppedCounts: make(map[string]float64),
		viewDur:       make(map[string][]float64),
		queryDur:      make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
// Call once at process shutdown.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.MetricViewsTotal:
		b.viewCounts[viewStatusKey(labels["view"], labels["status"])] += delta

	case metrics.MetricRowsTotal:
		view := labels["view"]
		if view == "" {
			return
		}
		b.rowCounts[view] += delta

	case metrics.MetricStatesDroppedTotal:
		view := labels["view"]
		if view == "" {
			view = "unknown"
		}
		b.droppedCounts[view] += delta

	default:
		// Unknown metric names are ignored.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.MetricViewDuration:
		k := viewStatusKey(labels["view"], labels["status"])
		b.viewDur[k] = append(b.viewDur[k], value)

	case metrics.MetricQueryDuration:
		q := labels["query"]
		if q == "" {
			q = "unknown"
		}
		b.queryDur[q] = append(b.queryDur[q], value)

	default:
		// Unknown histogram names are ignored.
	}
}

// snapshot is the buffered state a single flush submits.
type snapshot struct {
	viewCounts    map[string]float64
	rowCounts     map[string]float64
	droppedCounts map[string]float64
	viewDur       map[string][]float64
	queryDur      map[string][]float64
}

// snapshotAndReset grabs current buffers and resets them. Flush must reset
// under the lock but submit out-of-lock; this is the handoff point.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		viewCounts:    b.viewCounts,
		rowCounts:     b.rowCounts,
		droppedCounts: b.droppedCounts,
		viewDur:       b.viewDur,
		queryDur:      b.queryDur,
	}

	b.viewCounts = make(map[string]float64)
	b.rowCounts = make(map[string]float64)
	b.droppedCounts = make(map[string]float64)
	b.viewDur = make(map[string][]float64)
	b.queryDur = make(map[string][]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.viewCounts) == 0 &&
		len(s.rowCounts) == 0 &&
		len(s.droppedCounts) == 0 &&
		len(s.viewDur) == 0 &&
		len(s.queryDur) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Buffers are reset even if submission fails: the dashboard must never
// block or grow unbounded because the metrics intake is down.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	nowUnix := b.now().Unix()
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, nowUnix)}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs Datadog series for a snapshot at a fixed
// timestamp. It is pure (no locks, network, or clocks) so the naming and
// tagging contract is unit-testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.viewCounts)+len(s.rowCounts)+16)

	for k, v := range s.viewCounts {
		if v == 0 {
			continue
		}
		view, status := splitViewStatusKey(k)
		tags := withTags(b.baseTags, "view:"+view, "status:"+status)
		series = append(series, countSeries("heatmap.views.total", v, tags, nowUnix))
	}

	for view, v := range s.rowCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "view:"+view)
		series = append(series, countSeries("heatmap.rows.total", v, tags, nowUnix))
	}

	for view, v := range s.droppedCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "view:"+view)
		series = append(series, countSeries("heatmap.states_dropped.total", v, tags, nowUnix))
	}

	for k, samples := range s.viewDur {
		view, status := splitViewStatusKey(k)
		tags := withTags(b.baseTags, "view:"+view, "status:"+status)
		addPercentiles(&series, "heatmap.view.duration_seconds", samples, tags, nowUnix)
	}

	for q, samples := range s.queryDur {
		tags := withTags(b.baseTags, "query:"+q)
		addPercentiles(&series, "heatmap.query.duration_seconds", samples, tags, nowUnix)
	}

	return series
}

// addPercentiles appends a fixed set of percentile gauges for a sample set.
// Sorts a copy; does not mutate the input.
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, samples []float64, tags []string, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series, gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix))
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func viewStatusKey(view, status string) string {
	if view == "" {
		view = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	return view + "\x00" + status
}

func splitViewStatusKey(k string) (view, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:heatmap".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
