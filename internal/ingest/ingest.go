// Package ingest streams pricing observation CSVs into a warehouse. It
// reads record by record, so file size does not bound memory, and inserts
// in batches.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
	"github.com/Sagar-cesta/heatmap2/internal/warehouse"
)

// Logger is the minimal logging seam; *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Options controls CSV ingestion.
type Options struct {
	// BatchSize is rows per insert. Defaults to 500 if <= 0.
	BatchSize int

	// Column headers, matched case-insensitively. Defaults: "state",
	// "category", "negotiated_type". Extra CSV columns are ignored.
	StateColumn    string
	CategoryColumn string
	TypeColumn     string
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.StateColumn == "" {
		o.StateColumn = "state"
	}
	if o.CategoryColumn == "" {
		o.CategoryColumn = "category"
	}
	if o.TypeColumn == "" {
		o.TypeColumn = "negotiated_type"
	}
	return o
}

// Result summarizes one ingestion run.
type Result struct {
	Read     int64
	Inserted int64
	Batches  int
}

// Run streams CSV records from r into the loader. The first record is the
// header; empty cells become NULL fields so the dashboard's NULL handling
// applies to them later.
//
// On a mid-stream error the already-inserted batches stay in the warehouse;
// the returned Result reflects what was committed.
func Run(ctx context.Context, r io.Reader, loader warehouse.Loader, opts Options, logger Logger) (Result, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return Result{}, fmt.Errorf("ingest: empty input, no header")
	}
	if err != nil {
		return Result{}, fmt.Errorf("ingest: read header: %w", err)
	}

	cols, err := resolveColumns(header, opts)
	if err != nil {
		return Result{}, err
	}

	var res Result
	batch := make([]analytics.Observation, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := loader.InsertObservations(ctx, batch)
		res.Inserted += n
		res.Batches++
		if err != nil {
			return fmt.Errorf("ingest: insert batch %d: %w", res.Batches, err)
		}
		logger.Printf("stage=ingest batch=%d rows=%d total=%d", res.Batches, len(batch), res.Inserted)
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("ingest: read record %d: %w", res.Read+1, err)
		}

		res.Read++
		batch = append(batch, analytics.Observation{
			State:          cellPtr(rec, cols.state),
			Category:       cellPtr(rec, cols.category),
			NegotiatedType: cellPtr(rec, cols.negotiatedType),
		})

		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	if err := flush(); err != nil {
		return res, err
	}

	logger.Printf("stage=ingest status=done read=%d inserted=%d batches=%d", res.Read, res.Inserted, res.Batches)
	return res, nil
}

type columnIndexes struct {
	state          int
	category       int
	negotiatedType int
}

func resolveColumns(header []string, opts Options) (columnIndexes, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := columnIndexes{}
	var err error
	if cols.state, err = lookup(index, opts.StateColumn); err != nil {
		return cols, err
	}
	if cols.category, err = lookup(index, opts.CategoryColumn); err != nil {
		return cols, err
	}
	if cols.negotiatedType, err = lookup(index, opts.TypeColumn); err != nil {
		return cols, err
	}
	return cols, nil
}

func lookup(index map[string]int, name string) (int, error) {
	i, ok := index[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("ingest: column %q not found in header", name)
	}
	return i, nil
}

// cellPtr returns the cell as a *string, nil for empty or whitespace-only
// cells. The slice cell is copied because csv.Reader reuses record buffers.
func cellPtr(rec []string, i int) *string {
	if i >= len(rec) {
		return nil
	}
	v := strings.TrimSpace(rec[i])
	if v == "" {
		return nil
	}
	return analytics.StringPtr(v)
}
