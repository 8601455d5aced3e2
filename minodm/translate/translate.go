// Package translate converts the ordered operation list produced by a
// resolved query builder into the backend-agnostic filter and update
// documents consumed by storage backends.
package translate

import (
	"fmt"

	"github.com/minodm/minodm/minodm/query"
	"github.com/minodm/minodm/minodm/storage"
)

var filterOps = map[query.Operator]storage.Op{
	query.Equal:    storage.OpEqual,
	query.NotEqual: storage.OpNotEqual,
	query.IsIn:     storage.OpIsIn,
	query.NotIn:    storage.OpNotIn,
	query.Gt:       storage.OpGt,
	query.Gte:      storage.OpGte,
	query.Lt:       storage.OpLt,
	query.Lte:      storage.OpLte,
	query.Exists:   storage.OpExists,
	query.Matches:  storage.OpMatches,
}

// Build groups ops into a filter and an update. The input list's order is
// preserved for filter conditions and duplicates are kept; update operators
// are folded into the update document, last write winning per field.
func Build(ops []query.Operation) (storage.Filter, storage.Update, error) {
	var f storage.Filter
	u := storage.Update{}

	for _, op := range ops {
		if op.Context == "" {
			return storage.Filter{}, storage.Update{}, fmt.Errorf("operation %s has no context", op.Operator)
		}
		switch op.Operator {
		case query.Set:
			if u.Set == nil {
				u.Set = map[string]any{}
			}
			u.Set[op.Context] = op.Value
		case query.Unset:
			u.Unset = append(u.Unset, op.Context)
		case query.Inc:
			n, ok := toFloat(op.Value)
			if !ok {
				return storage.Filter{}, storage.Update{}, fmt.Errorf("INC on %q needs a numeric operand, got %T", op.Context, op.Value)
			}
			if u.Inc == nil {
				u.Inc = map[string]float64{}
			}
			u.Inc[op.Context] += n
		default:
			sop, ok := filterOps[op.Operator]
			if !ok {
				return storage.Filter{}, storage.Update{}, fmt.Errorf("unknown operator %s", op.Operator)
			}
			f.Conds = append(f.Conds, storage.Cond{Field: op.Context, Op: sop, Value: op.Value})
		}
	}
	return f, u, nil
}

// BuildFilter is Build restricted to filter operators; an update operator
// in the input is an error.
func BuildFilter(ops []query.Operation) (storage.Filter, error) {
	for _, op := range ops {
		if op.Operator.IsUpdate() {
			return storage.Filter{}, fmt.Errorf("update operator %s not allowed in a filter", op.Operator)
		}
	}
	f, _, err := Build(ops)
	return f, err
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
