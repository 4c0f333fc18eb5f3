package analytics

import "math"

// ColumnTotal is the default name of the derived total column.
const ColumnTotal = "total"

// Pivot cross-tabulates an aggregate table.
//
// For every distinct rowKey value one output row is produced, and for every
// distinct colKey value seen anywhere in the input one output column is
// produced on ALL rows. Cells hold the value for that (row, column) pair, or
// 0 when the combination never occurred in the input. The column set is
// derived from the data, not fixed a priori.
//
// Ordering (documented contract, relied on by the views):
//   - rows: distinct rowKey values in first-seen input order
//   - columns: rowKey column first, then distinct colKey values in
//     first-seen input order
//
// Cells are int. Fractional input values are rounded half away from zero;
// counting aggregates only ever produce whole values, so in this domain the
// rounding is exact.
//
// Errors:
//   - *SchemaError if rowKey, colKey, or value is not a column of t.
func Pivot(t *Table, rowKey, colKey, value string) (*Table, error) {
	ri, err := t.ColumnIndex(rowKey)
	if err != nil {
		return nil, err
	}
	ci, err := t.ColumnIndex(colKey)
	if err != nil {
		return nil, err
	}
	vi, err := t.ColumnIndex(value)
	if err != nil {
		return nil, err
	}

	// Discover the column set first so every row can be allocated full width.
	colIndex := make(map[string]int)
	colNames := []string{}
	for _, row := range t.Rows {
		c := cellString(row[ci])
		if _, ok := colIndex[c]; !ok {
			colIndex[c] = len(colNames)
			colNames = append(colNames, c)
		}
	}

	out := &Table{Columns: append([]string{rowKey}, colNames...)}
	rowIndex := make(map[string]int)

	for _, row := range t.Rows {
		r := cellString(row[ri])
		i, ok := rowIndex[r]
		if !ok {
			i = len(out.Rows)
			rowIndex[r] = i
			cells := make([]any, len(out.Columns))
			cells[0] = r
			for j := 1; j < len(cells); j++ {
				cells[j] = 0
			}
			out.Rows = append(out.Rows, cells)
		}

		v, _ := cellNumber(row[vi])
		j := colIndex[cellString(row[ci])]
		out.Rows[i][1+j] = out.Rows[i][1+j].(int) + int(math.Round(v))
	}

	return out, nil
}

// AddTotal appends a derived total column whose value per row is the sum of
// every column except the excluded (row key) column.
//
// It must run after Pivot so zero-filled cells are part of the sum; they
// contribute nothing, so the total counts exactly the combinations that
// occurred. name defaults to ColumnTotal when empty.
//
// Errors:
//   - *SchemaError if exclude is not a column of t, or if a column named
//     name already exists (the total must be distinct from all data columns).
func AddTotal(t *Table, exclude, name string) (*Table, error) {
	if name == "" {
		name = ColumnTotal
	}
	ei, err := t.ColumnIndex(exclude)
	if err != nil {
		return nil, err
	}
	if t.hasColumn(name) {
		return nil, &SchemaError{Field: name}
	}

	out := &Table{Columns: append(append([]string{}, t.Columns...), name)}
	for _, row := range t.Rows {
		sum := 0
		for i, cell := range row {
			if i == ei {
				continue
			}
			if n, ok := cellNumber(cell); ok {
				sum += int(math.Round(n))
			}
		}
		out.Rows = append(out.Rows, append(append([]any{}, row...), sum))
	}

	return out, nil
}
