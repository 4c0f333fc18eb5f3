// Package analytics implements the aggregation and pivot transforms behind
// the dashboard views: per-state counts, two-level grouped counts, pivoted
// cross-tabulations with zero fill, derived totals, and state-code mapping.
//
// Every operation is a pure function over in-memory tables. There is no I/O,
// no shared state, and no caching; each call derives its output from its
// inputs alone, so calls are safe from any number of request goroutines.
package analytics

import "fmt"

// SchemaError reports a reference to a field or column that does not exist.
//
// This is a programmer/integration error (a query and a transform disagree
// about the row shape), not a data-quality condition. Callers should treat it
// as fatal for the request rather than catch-and-ignore.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("analytics: unknown field %q", e.Field)
}

// Table is an ordered tabular result: named columns and positional rows.
//
// Cell types are per-column homogeneous in practice: string for key columns,
// float64 for aggregate values, int for pivot counts. Column order and row
// order are meaningful and preserved by every transform.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnIndex returns the position of the named column.
//
// Errors:
//   - *SchemaError if the column is not present.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, &SchemaError{Field: name}
}

func (t *Table) hasColumn(name string) bool {
	_, err := t.ColumnIndex(name)
	return err == nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// cellString renders a key cell for grouping and display.
func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// cellNumber reads a numeric cell produced by an aggregate or pivot.
func cellNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
