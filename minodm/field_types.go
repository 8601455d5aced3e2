package minodm

import (
	"context"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/minodm/minodm/minodm/query"
)

// Any returns a field accepting every value.
func Any() *Field {
	return NewField(KindAny)
}

// String returns a string field. Strings additionally support the MATCHES
// operator (pattern match, backend semantics).
func String() *Field {
	f := NewField(KindString)
	f.extraOps = []query.Operator{query.Matches}
	return f
}

// Number returns a numeric field. Numbers additionally support comparison
// operators and the INC update operator. Assigned values are normalized to
// float64.
func Number() *Field {
	f := NewField(KindNumber)
	f.extraOps = []query.Operator{query.Gt, query.Gte, query.Lt, query.Lte, query.Inc}
	f.caster = func(v any) any {
		if n, ok := toFloat(v); ok {
			return n
		}
		return v
	}
	return f
}

// Bool returns a boolean field.
func Bool() *Field {
	return NewField(KindBool)
}

// Date returns a date field. Accepted values are time.Time, RFC3339
// strings, or YYYY-MM-DD strings; assignment normalizes time.Time values
// to RFC3339 strings. Dates support comparison operators.
func Date() *Field {
	f := NewField(KindDate)
	f.extraOps = []query.Operator{query.Gt, query.Gte, query.Lt, query.Lte}
	f.caster = func(v any) any {
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return v
	}
	return f
}

// Object returns a field holding a nested document.
func Object() *Field {
	return NewField(KindObject)
}

// JSONSchema validates values of an Object field against a JSON Schema
// document.
func (f *Field) JSONSchema(schemaJSON []byte) *Field {
	loader := gojsonschema.NewBytesLoader(schemaJSON)
	return f.Validate(func(_ context.Context, value any, _ map[string]any) (bool, error) {
		result, err := gojsonschema.Validate(loader, gojsonschema.NewGoLoader(value))
		if err != nil {
			return false, fmt.Errorf("json schema: %w", err)
		}
		return result.Valid(), nil
	})
}

func kindAccepts(k Kind, v any) bool {
	if v == nil {
		// nil is allowed for every kind; absence semantics are handled by
		// Init and requiredness by ValidateDocument.
		return true
	}
	switch k {
	case KindAny:
		return true
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		_, ok := toFloat(v)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindDate:
		return isDateValue(v)
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

func toFloat(v any) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func isDateValue(v any) bool {
	switch d := v.(type) {
	case time.Time:
		return true
	case string:
		if _, err := time.Parse("2006-01-02", d); err == nil {
			return true
		}
		if _, err := time.Parse(time.RFC3339, d); err == nil {
			return true
		}
		return false
	default:
		return false
	}
}

// ParseDate converts an accepted date value to epoch milliseconds.
func ParseDate(v any) (int64, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UnixMilli(), nil
	case string:
		if t, err := time.Parse("2006-01-02", d); err == nil {
			return t.UnixMilli(), nil
		}
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t.UnixMilli(), nil
		}
		return 0, fmt.Errorf("invalid date format: %s", d)
	default:
		return 0, fmt.Errorf("invalid date value type: %T", v)
	}
}
