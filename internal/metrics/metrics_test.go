package metrics

import "testing"

type recordingBackend struct {
	counters   int
	histograms int
	flushes    int
}

func (r *recordingBackend) IncCounter(string, float64, Labels)       { r.counters++ }
func (r *recordingBackend) ObserveHistogram(string, float64, Labels) { r.histograms++ }
func (r *recordingBackend) Flush() error                             { r.flushes++; return nil }

func TestSetBackendRoutesEvents(t *testing.T) {
	rec := &recordingBackend{}
	SetBackend(rec)
	defer SetBackend(nil)

	IncCounter(MetricViewsTotal, 1, Labels{"view": "overview"})
	ObserveHistogram(MetricViewDuration, 0.1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if rec.counters != 1 || rec.histograms != 1 || rec.flushes != 1 {
		t.Fatalf("recorded = %+v", *rec)
	}
}

func TestNilBackendRestoresNop(t *testing.T) {
	SetBackend(nil)

	// Must not panic and must be a no-op.
	IncCounter(MetricRowsTotal, 10, nil)
	ObserveHistogram(MetricQueryDuration, 0.5, nil)
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
