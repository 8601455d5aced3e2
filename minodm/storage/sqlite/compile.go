package sqlite

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

// fieldExpr returns the SQL expression selecting a document field. The id
// key maps to the id column, everything else goes through json_extract.
// Field names are restricted to identifiers; they are spliced into SQL.
func fieldExpr(field string) (string, error) {
	if field == storage.IDKey {
		return "id", nil
	}
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field), nil
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
	expr, err := fieldExpr(c.Field)
	if err != nil {
		return "", err
	}

	switch c.Op {
	case storage.OpEqual:
		if c.Value == nil {
			return expr + " IS NULL", nil
		}
		return expr + " = " + b.Arg(bindValue(c.Value)), nil
	case storage.OpNotEqual:
		if c.Value == nil {
			return expr + " IS NOT NULL", nil
		}
		// absent counts as not-equal, matching the in-memory backend
		return "(" + expr + " IS NULL OR " + expr + " <> " + b.Arg(bindValue(c.Value)) + ")", nil
	case storage.OpIsIn:
		set, err := setValues(c)
		if err != nil {
			return "", err
		}
		if len(set) == 0 {
			return "0 = 1", nil
		}
		return expr + " IN (" + placeholders(b, set) + ")", nil
	case storage.OpNotIn:
		set, err := setValues(c)
		if err != nil {
			return "", err
		}
		if len(set) == 0 {
			return "1 = 1", nil
		}
		return "(" + expr + " IS NULL OR " + expr + " NOT IN (" + placeholders(b, set) + "))", nil
	case storage.OpGt:
		return expr + " > " + b.Arg(bindValue(c.Value)), nil
	case storage.OpGte:
		return expr + " >= " + b.Arg(bindValue(c.Value)), nil
	case storage.OpLt:
		return expr + " < " + b.Arg(bindValue(c.Value)), nil
	case storage.OpLte:
		return expr + " <= " + b.Arg(bindValue(c.Value)), nil
	case storage.OpExists:
		if want, ok := c.Value.(bool); ok && !want {
			return expr + " IS NULL", nil
		}
		return expr + " IS NOT NULL", nil
	case storage.OpMatches:
		// SQLite has no bundled regexp; MATCHES is a LIKE pattern here.
		return expr + " LIKE " + b.Arg(bindValue(c.Value)), nil
	default:
		return "", fmt.Errorf("unsupported operator %s", c.Op)
	}
}

// updateExpr builds the nested json_set/json_remove expression applying an
// update to the data column. Keys apply in sorted order for determinism.
func updateExpr(b *sqlbuilder.Builder, u storage.Update) (string, error) {
	expr := "data"

	for _, k := range sortedKeys(u.Set) {
		path, err := jsonPath(k)
		if err != nil {
			return "", err
		}
		enc, err := json.Marshal(u.Set[k])
		if err != nil {
			return "", fmt.Errorf("marshal update value for %q: %w", k, err)
		}
		expr = fmt.Sprintf("json_set(%s, %s, json(%s))", expr, path, b.Arg(string(enc)))
	}
	for _, k := range u.Unset {
		path, err := jsonPath(k)
		if err != nil {
			return "", err
		}
		expr = fmt.Sprintf("json_remove(%s, %s)", expr, path)
	}
	for _, k := range sortedFloatKeys(u.Inc) {
		path, err := jsonPath(k)
		if err != nil {
			return "", err
		}
		expr = fmt.Sprintf("json_set(%s, %s, IFNULL(json_extract(data, %s), 0) + %s)",
			expr, path, path, b.Arg(u.Inc[k]))
	}
	return expr, nil
}

func jsonPath(field string) (string, error) {
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "'$." + field + "'", nil
}

func placeholders(b *sqlbuilder.Builder, vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = b.Arg(bindValue(v))
	}
	return strings.Join(parts, ", ")
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

// bindValue converts Go values to what json_extract yields: booleans come
// back as 0/1 integers.
func bindValue(v any) any {
	if bv, ok := v.(bool); ok {
		if bv {
			return 1
		}
		return 0
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFloatKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
