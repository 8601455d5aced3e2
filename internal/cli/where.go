package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/minodm/minodm/minodm"
)

// ApplyWhere parses repeatable --where flags onto a query. Supported forms:
//
//	field=value   field!=value   field>v  field>=v  field<v  field<=v
//	field~pattern             (MATCHES)
//	field in a,b,c            field notin a,b,c
//	field exists              field !exists
//
// Values parse as bool or number when they look like one, else string.
func ApplyWhere(q *minodm.Query, exprs []string) error {
	for _, expr := range exprs {
		if err := applyOne(q, strings.TrimSpace(expr)); err != nil {
			return fmt.Errorf("--where %q: %w", expr, err)
		}
	}
	return nil
}

func applyOne(q *minodm.Query, expr string) error {
	if fields := strings.Fields(expr); len(fields) >= 2 {
		field := fields[0]
		switch strings.ToLower(fields[1]) {
		case "exists":
			q.Where(field).Exists(true)
			return nil
		case "!exists":
			q.Where(field).Exists(false)
			return nil
		case "in", "notin":
			if len(fields) < 3 {
				return fmt.Errorf("missing value list")
			}
			vals := parseList(strings.Join(fields[2:], " "))
			if fields[1] == "in" {
				q.Where(field).In(vals...)
			} else {
				q.Where(field).NotIn(vals...)
			}
			return nil
		}
	}

	// Order matters: two-character operators first.
	for _, op := range []string{"!=", ">=", "<=", "=", ">", "<", "~"} {
		if i := strings.Index(expr, op); i > 0 {
			field := strings.TrimSpace(expr[:i])
			val := parseValue(strings.TrimSpace(expr[i+len(op):]))
			switch op {
			case "=":
				q.Where(field).Equals(val)
			case "!=":
				q.Where(field).NotEquals(val)
			case ">":
				q.Where(field).Gt(val)
			case ">=":
				q.Where(field).Gte(val)
			case "<":
				q.Where(field).Lt(val)
			case "<=":
				q.Where(field).Lte(val)
			case "~":
				s, ok := val.(string)
				if !ok {
					s = fmt.Sprint(val)
				}
				q.Where(field).Matches(s)
			}
			return nil
		}
	}
	return fmt.Errorf("unrecognized condition")
}

func parseList(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, parseValue(strings.TrimSpace(p)))
	}
	return out
}

func parseValue(s string) any {
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
