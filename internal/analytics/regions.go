package analytics

// ColumnStateCode is the derived column added by MapStateCodes.
const ColumnStateCode = "state_code"

// stateCodes maps full state names to their two-letter codes as used by
// USA-states choropleth locations. The table is closed: 50 states plus the
// District of Columbia. Territories are intentionally absent; changing the
// covered set is a code change here, not runtime configuration.
var stateCodes = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR",
	"California": "CA", "Colorado": "CO", "Connecticut": "CT", "Delaware": "DE",
	"District of Columbia": "DC", "Florida": "FL", "Georgia": "GA",
	"Hawaii": "HI", "Idaho": "ID", "Illinois": "IL", "Indiana": "IN",
	"Iowa": "IA", "Kansas": "KS", "Kentucky": "KY", "Louisiana": "LA",
	"Maine": "ME", "Maryland": "MD", "Massachusetts": "MA", "Michigan": "MI",
	"Minnesota": "MN", "Mississippi": "MS", "Missouri": "MO", "Montana": "MT",
	"Nebraska": "NE", "Nevada": "NV", "New Hampshire": "NH", "New Jersey": "NJ",
	"New Mexico": "NM", "New York": "NY", "North Carolina": "NC",
	"North Dakota": "ND", "Ohio": "OH", "Oklahoma": "OK", "Oregon": "OR",
	"Pennsylvania": "PA", "Rhode Island": "RI", "South Carolina": "SC",
	"South Dakota": "SD", "Tennessee": "TN", "Texas": "TX", "Utah": "UT",
	"Vermont": "VT", "Virginia": "VA", "Washington": "WA",
	"West Virginia": "WV", "Wisconsin": "WI", "Wyoming": "WY",
}

// StateCode looks up the two-letter code for a full state name.
func StateCode(name string) (string, bool) {
	code, ok := stateCodes[name]
	return code, ok
}

// MapStateCodes appends a state_code column derived from the named state
// column and drops every row whose state has no entry in the closed lookup.
//
// The drop is silent (the map widget can only render known states), but
// the dropped state names are returned, one per dropped row,
// so callers can log or count lost coverage. A dropped row is thus
// distinguishable from a zero-count state.
//
// The operation is idempotent: if t already carries a state_code column it
// is recomputed in place rather than duplicated, and rows that survived a
// previous pass always survive again.
//
// Errors:
//   - *SchemaError if stateColumn is not a column of t.
func MapStateCodes(t *Table, stateColumn string) (*Table, []string, error) {
	si, err := t.ColumnIndex(stateColumn)
	if err != nil {
		return nil, nil, err
	}

	codeIdx, hasCode := -1, false
	if i, err := t.ColumnIndex(ColumnStateCode); err == nil {
		codeIdx, hasCode = i, true
	}

	out := &Table{Columns: t.Columns}
	if !hasCode {
		out.Columns = append(append([]string{}, t.Columns...), ColumnStateCode)
	}

	var dropped []string
	for _, row := range t.Rows {
		name := cellString(row[si])
		code, ok := stateCodes[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		if hasCode {
			cells := append([]any{}, row...)
			cells[codeIdx] = code
			out.Rows = append(out.Rows, cells)
			continue
		}
		out.Rows = append(out.Rows, append(append([]any{}, row...), code))
	}

	return out, dropped, nil
}
