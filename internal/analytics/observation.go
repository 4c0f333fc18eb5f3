package analytics

// Field names a categorical field on an Observation.
type Field string

// Observation fields. These are the canonical column names used by the
// warehouse queries and by every aggregate the transforms emit.
const (
	FieldState          Field = "state"
	FieldCategory       Field = "category"
	FieldNegotiatedType Field = "negotiated_type"
)

// Observation is one pricing record as fetched from the warehouse.
//
// All three fields are nullable categorical identifiers; nil means the
// warehouse column was NULL. Nullability is explicit here so that a missing
// value is a normal (excluded-from-grouping) case while a missing *field* on
// a raw record is a SchemaError at construction time.
type Observation struct {
	State          *string `json:"state"`
	Category       *string `json:"category"`
	NegotiatedType *string `json:"negotiated_type"`
}

// value returns the named field, or a SchemaError for an unknown field name.
func (o Observation) value(f Field) (*string, error) {
	switch f {
	case FieldState:
		return o.State, nil
	case FieldCategory:
		return o.Category, nil
	case FieldNegotiatedType:
		return o.NegotiatedType, nil
	default:
		return nil, &SchemaError{Field: string(f)}
	}
}

// ObservationFromRecord builds an Observation from a raw name→value record.
//
// Contract:
//   - Every canonical field key must be present in rec, even when its value
//     is nil. A missing key means the producing query and this package
//     disagree about the row shape, which is a *SchemaError.
//   - nil values and empty strings map to nil (NULL) fields.
func ObservationFromRecord(rec map[string]any) (Observation, error) {
	var obs Observation
	for _, f := range []struct {
		field Field
		dst   **string
	}{
		{FieldState, &obs.State},
		{FieldCategory, &obs.Category},
		{FieldNegotiatedType, &obs.NegotiatedType},
	} {
		v, ok := rec[string(f.field)]
		if !ok {
			return Observation{}, &SchemaError{Field: string(f.field)}
		}
		if v == nil {
			continue
		}
		s := cellString(v)
		if s == "" {
			continue
		}
		*f.dst = &s
	}
	return obs, nil
}

// StringPtr is a convenience for building observations in callers and tests.
func StringPtr(s string) *string { return &s }
