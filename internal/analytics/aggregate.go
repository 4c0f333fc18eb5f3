package analytics

import "sort"

// ColumnCount is the value column emitted by the counting operations.
const ColumnCount = "count"

// CountByKeys groups observations by one or more categorical fields and
// counts the rows in each group.
//
// Semantics:
//   - Rows where any requested field is NULL are excluded before grouping,
//     mirroring the WHERE ... IS NOT NULL clauses of the warehouse queries.
//   - One output row per distinct key combination present in the input, in
//     first-seen order. Counts are therefore always >= 1; zero-count
//     combinations are never emitted.
//   - Empty input (or input that is entirely NULL-keyed) yields an empty
//     table with the same columns.
//
// Errors:
//   - *SchemaError for an unknown field name.
func CountByKeys(rows []Observation, keys ...Field) (*Table, error) {
	if len(keys) == 0 {
		return nil, &SchemaError{Field: ""}
	}

	cols := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		cols = append(cols, string(k))
	}
	cols = append(cols, ColumnCount)

	out := &Table{Columns: cols}

	// group key (joined with \x00) -> row index, first-seen order.
	index := make(map[string]int)

	for _, obs := range rows {
		vals := make([]string, 0, len(keys))
		skip := false
		for _, k := range keys {
			v, err := obs.value(k)
			if err != nil {
				return nil, err
			}
			if v == nil {
				skip = true
				break
			}
			vals = append(vals, *v)
		}
		if skip {
			continue
		}

		gk := joinGroupKey(vals)
		if i, ok := index[gk]; ok {
			out.Rows[i][len(keys)] = out.Rows[i][len(keys)].(float64) + 1
			continue
		}

		row := make([]any, len(keys)+1)
		for i, v := range vals {
			row[i] = v
		}
		row[len(keys)] = float64(1)
		index[gk] = len(out.Rows)
		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// GroupSum collapses a table to one row per distinct key value, summing the
// named numeric column. Output order is first-seen key order.
//
// This is the "two-level grouped sum" step of the nationwide category view:
// count by (state, category) first, then sum the per-category counts up to
// one value per state.
//
// Errors:
//   - *SchemaError if either column is missing.
func GroupSum(t *Table, keyColumn, valueColumn string) (*Table, error) {
	ki, err := t.ColumnIndex(keyColumn)
	if err != nil {
		return nil, err
	}
	vi, err := t.ColumnIndex(valueColumn)
	if err != nil {
		return nil, err
	}

	out := &Table{Columns: []string{keyColumn, valueColumn}}
	index := make(map[string]int)

	for _, row := range t.Rows {
		k := cellString(row[ki])
		v, _ := cellNumber(row[vi])
		if i, ok := index[k]; ok {
			out.Rows[i][1] = out.Rows[i][1].(float64) + v
			continue
		}
		index[k] = len(out.Rows)
		out.Rows = append(out.Rows, []any{k, v})
	}

	return out, nil
}

// SortBy returns a copy of the table stably sorted on one column.
// Numeric columns compare numerically, everything else as strings.
//
// Errors:
//   - *SchemaError if the column is missing.
func SortBy(t *Table, column string, descending bool) (*Table, error) {
	ci, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	out := &Table{Columns: t.Columns, Rows: make([][]any, len(t.Rows))}
	copy(out.Rows, t.Rows)

	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, aNum := cellNumber(out.Rows[i][ci])
		b, bNum := cellNumber(out.Rows[j][ci])
		var less bool
		if aNum && bNum {
			less = a < b
		} else {
			less = cellString(out.Rows[i][ci]) < cellString(out.Rows[j][ci])
		}
		if descending {
			return !less && !equalCell(out.Rows[i][ci], out.Rows[j][ci])
		}
		return less
	})

	return out, nil
}

func equalCell(a, b any) bool {
	if an, ok := cellNumber(a); ok {
		if bn, ok := cellNumber(b); ok {
			return an == bn
		}
	}
	return cellString(a) == cellString(b)
}

// joinGroupKey joins key values with NUL, which cannot occur in warehouse
// categorical values, so composite keys never collide.
func joinGroupKey(vals []string) string {
	switch len(vals) {
	case 1:
		return vals[0]
	default:
		n := 0
		for _, v := range vals {
			n += len(v) + 1
		}
		b := make([]byte, 0, n)
		for i, v := range vals {
			if i > 0 {
				b = append(b, 0)
			}
			b = append(b, v...)
		}
		return string(b)
	}
}
