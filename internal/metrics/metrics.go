// Package metrics defines the minimal metrics surface the dashboard emits
// to. The core depends only on Backend; concrete backends (Datadog, nop)
// live in subpackages and are selected at startup.
package metrics

import "sync"

// Labels are free-form metric dimensions (view name, status, query name).
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for
// concurrent use; request handlers call these from many goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names emitted by the dashboard. Backends may ignore names they do
// not recognize.
const (
	MetricViewsTotal         = "dashboard_views_total"
	MetricRowsTotal          = "dashboard_rows_total"
	MetricStatesDroppedTotal = "dashboard_states_dropped_total"
	MetricViewDuration       = "dashboard_view_duration_seconds"
	MetricQueryDuration      = "warehouse_query_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Pass nil to restore the nop
// backend (useful in tests).
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error {
	return current().Flush()
}
