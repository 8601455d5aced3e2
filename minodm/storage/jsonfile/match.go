package jsonfile

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/minodm/minodm/minodm/storage"
)

// matches evaluates a filter against one document in memory.
func matches(doc map[string]any, f storage.Filter) (bool, error) {
	for _, c := range f.Conds {
		ok, err := matchCond(doc, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchCond(doc map[string]any, c storage.Cond) (bool, error) {
	v, present := doc[c.Field]
	switch c.Op {
	case storage.OpEqual:
		return present && looseEqual(v, c.Value), nil
	case storage.OpNotEqual:
		return !present || !looseEqual(v, c.Value), nil
	case storage.OpIsIn:
		set, err := asSlice(c.Value)
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
		for _, item := range set {
			if looseEqual(v, item) {
				return true, nil
			}
		}
		return false, nil
	case storage.OpNotIn:
		set, err := asSlice(c.Value)
		if err != nil {
			return false, err
		}
		if !present {
			return true, nil
		}
		for _, item := range set {
			if looseEqual(v, item) {
				return false, nil
			}
		}
		return true, nil
	case storage.OpGt, storage.OpGte, storage.OpLt, storage.OpLte:
		if !present {
			return false, nil
		}
		return compareOrdered(v, c.Value, c.Op)
	case storage.OpExists:
		want, ok := c.Value.(bool)
		if !ok {
			want = true
		}
		return present == want, nil
	case storage.OpMatches:
		pattern, ok := c.Value.(string)
		if !ok {
			return false, fmt.Errorf("MATCHES on %q needs a string pattern, got %T", c.Field, c.Value)
		}
		str, ok := v.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("MATCHES on %q: %w", c.Field, err)
		}
		return re.MatchString(str), nil
	default:
		return false, fmt.Errorf("unsupported operator %s", c.Op)
	}
}

// looseEqual compares with numeric widening so 3 and 3.0 match, as they do
// after a JSON round trip.
func looseEqual(a, b any) bool {
	if na, ok := numeric(a); ok {
		if nb, ok := numeric(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(a, b any, op storage.Op) (bool, error) {
	na, aok := numeric(a)
	nb, bok := numeric(b)
	var cmp int
	switch {
	case aok && bok:
		switch {
		case na < nb:
			cmp = -1
		case na > nb:
			cmp = 1
		}
	default:
		sa, saok := a.(string)
		sb, sbok := b.(string)
		if !saok || !sbok {
			return false, nil
		}
		switch {
		case sa < sb:
			cmp = -1
		case sa > sb:
			cmp = 1
		}
	}
	switch op {
	case storage.OpGt:
		return cmp > 0, nil
	case storage.OpGte:
		return cmp >= 0, nil
	case storage.OpLt:
		return cmp < 0, nil
	default:
		return cmp <= 0, nil
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, nil
	case []float64:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, nil
	case []int:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("set operand must be a slice, got %T", v)
	}
}

// selectDocs applies filter, sort, skip and limit.
func selectDocs(docs []map[string]any, q storage.Query) ([]map[string]any, error) {
	var out []map[string]any
	for _, doc := range docs {
		ok, err := matches(doc, q.Filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	if q.Sort != nil {
		field, desc := q.Sort.Field, q.Sort.Desc
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i][field], out[j][field])
			if desc {
				return lessValue(out[j][field], out[i][field])
			}
			return less
		})
	}
	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func lessValue(a, b any) bool {
	if na, ok := numeric(a); ok {
		if nb, ok := numeric(b); ok {
			return na < nb
		}
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return sa < sb
	}
	return false
}
