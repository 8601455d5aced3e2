package postgres

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/storage/sqlbuilder"
)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkField(field string) error {
	if !fieldNameRe.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}

// textExpr selects a field as text (data->>'f'); the id key maps to the id
// column.
func textExpr(field string) (string, error) {
	if field == storage.IDKey {
		return "id", nil
	}
	if err := checkField(field); err != nil {
		return "", err
	}
	return fmt.Sprintf("data->>'%s'", field), nil
}

// typedExpr selects a field cast to match the operand's type, so numeric
// and boolean comparisons work against JSONB text extraction.
func typedExpr(field string, operand any) (string, error) {
	expr, err := textExpr(field)
	if err != nil {
		return "", err
	}
	if expr == "id" {
		return expr, nil
	}
	switch operand.(type) {
	case float64, float32, int, int64:
		return "(" + expr + ")::numeric", nil
	case bool:
		return "(" + expr + ")::boolean", nil
	default:
		return expr, nil
	}
}

func whereSQL(b *sqlbuilder.Builder, f storage.Filter) (string, error) {
	if len(f.Conds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(f.Conds))
	for _, c := range f.Conds {
		p, err := condSQL(b, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func condSQL(b *sqlbuilder.Builder, c storage.Cond) (string, error) {
	switch c.Op {
	case storage.OpEqual:
		expr, err := typedExpr(c.Field, c.Value)
		if err != nil {
			return "", err
		}
		if c.Value == nil {
			return expr + " IS NULL", nil
		}
		return expr + " = " + b.Arg(c.Value), nil
	case storage.OpNotEqual:
		expr, err := typedExpr(c.Field, c.Value)
		if err != nil {
			return "", err
		}
		if c.Value == nil {
			return expr + " IS NOT NULL", nil
		}
		return "(" + expr + " IS NULL OR " + expr + " <> " + b.Arg(c.Value) + ")", nil
	case storage.OpIsIn, storage.OpNotIn:
		set, err := setValues(c)
		if err != nil {
			return "", err
		}
		if len(set) == 0 {
			if c.Op == storage.OpIsIn {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		expr, err := typedExpr(c.Field, set[0])
		if err != nil {
			return "", err
		}
		parts := make([]string, len(set))
		for i, v := range set {
			parts[i] = b.Arg(v)
		}
		in := expr + " IN (" + strings.Join(parts, ", ") + ")"
		if c.Op == storage.OpNotIn {
			return "(" + expr + " IS NULL OR " + expr + " NOT IN (" + strings.Join(parts, ", ") + "))", nil
		}
		return in, nil
	case storage.OpGt, storage.OpGte, storage.OpLt, storage.OpLte:
		expr, err := typedExpr(c.Field, c.Value)
		if err != nil {
			return "", err
		}
		op := map[storage.Op]string{
			storage.OpGt:  ">",
			storage.OpGte: ">=",
			storage.OpLt:  "<",
			storage.OpLte: "<=",
		}[c.Op]
		return expr + " " + op + " " + b.Arg(c.Value), nil
	case storage.OpExists:
		if err := checkField(c.Field); err != nil {
			return "", err
		}
		if want, ok := c.Value.(bool); ok && !want {
			return "NOT jsonb_exists(data, " + b.Arg(c.Field) + ")", nil
		}
		return "jsonb_exists(data, " + b.Arg(c.Field) + ")", nil
	case storage.OpMatches:
		expr, err := textExpr(c.Field)
		if err != nil {
			return "", err
		}
		return expr + " ~* " + b.Arg(c.Value), nil
	default:
		return "", fmt.Errorf("unsupported operator %s", c.Op)
	}
}

// updateExpr builds the nested jsonb expression applying an update to the
// data column. Keys apply in sorted order for determinism.
func updateExpr(b *sqlbuilder.Builder, u storage.Update) (string, error) {
	expr := "data"

	setKeys := make([]string, 0, len(u.Set))
	for k := range u.Set {
		setKeys = append(setKeys, k)
	}
	sort.Strings(setKeys)
	for _, k := range setKeys {
		if err := checkField(k); err != nil {
			return "", err
		}
		enc, err := json.Marshal(u.Set[k])
		if err != nil {
			return "", fmt.Errorf("marshal update value for %q: %w", k, err)
		}
		expr = fmt.Sprintf("jsonb_set(%s, '{%s}', %s::jsonb, true)", expr, k, b.Arg(string(enc)))
	}
	for _, k := range u.Unset {
		if err := checkField(k); err != nil {
			return "", err
		}
		expr = fmt.Sprintf("(%s - '%s')", expr, k)
	}
	incKeys := make([]string, 0, len(u.Inc))
	for k := range u.Inc {
		incKeys = append(incKeys, k)
	}
	sort.Strings(incKeys)
	for _, k := range incKeys {
		if err := checkField(k); err != nil {
			return "", err
		}
		expr = fmt.Sprintf("jsonb_set(%s, '{%s}', to_jsonb(COALESCE((data->>'%s')::numeric, 0) + %s), true)",
			expr, k, k, b.Arg(u.Inc[k]))
	}
	return expr, nil
}

func setValues(c storage.Cond) ([]any, error) {
	switch s := c.Value.(type) {
	case []any:
		return s, nil
	case []string:
		out := make([]any, len(s))
		for i, v := range s {
			out[i] = v
		}
		return out, nil
	case []float64:
		out := make([]any, len(s))
		for i, v := range s {
			out[i] = v
		}
		return out, nil
	case []int:
		out := make([]any, len(s))
		for i, v := range s {
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s on %q needs a slice operand, got %T", c.Op, c.Field, c.Value)
	}
}
