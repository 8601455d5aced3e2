package postgres

import (
	"strings"
	"testing"

	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/storage/sqlbuilder"
)

func newArgs(t *testing.T) *sqlbuilder.Builder {
	t.Helper()
	return sqlbuilder.New(sqlbuilder.PlaceholderDollar)
}

func TestCondSQL(t *testing.T) {
	cases := []struct {
		name string
		cond storage.Cond
		want string
		args []any
	}{
		{
			"string equal",
			storage.Cond{Field: "role", Op: storage.OpEqual, Value: "admin"},
			"data->>'role' = $1",
			[]any{"admin"},
		},
		{
			"numeric comparison casts",
			storage.Cond{Field: "age", Op: storage.OpGte, Value: 18.0},
			"(data->>'age')::numeric >= $1",
			[]any{18.0},
		},
		{
			"bool equal casts",
			storage.Cond{Field: "active", Op: storage.OpEqual, Value: true},
			"(data->>'active')::boolean = $1",
			[]any{true},
		},
		{
			"id maps to column",
			storage.Cond{Field: "_id", Op: storage.OpEqual, Value: "x"},
			"id = $1",
			[]any{"x"},
		},
		{
			"equal nil",
			storage.Cond{Field: "note", Op: storage.OpEqual, Value: nil},
			"data->>'note' IS NULL",
			nil,
		},
		{
			"not equal matches absent",
			storage.Cond{Field: "role", Op: storage.OpNotEqual, Value: "admin"},
			"(data->>'role' IS NULL OR data->>'role' <> $1)",
			[]any{"admin"},
		},
		{
			"in",
			storage.Cond{Field: "role", Op: storage.OpIsIn, Value: []any{"a", "b"}},
			"data->>'role' IN ($1, $2)",
			[]any{"a", "b"},
		},
		{
			"in empty",
			storage.Cond{Field: "role", Op: storage.OpIsIn, Value: []any{}},
			"FALSE",
			nil,
		},
		{
			"notin empty",
			storage.Cond{Field: "role", Op: storage.OpNotIn, Value: []any{}},
			"TRUE",
			nil,
		},
		{
			"exists",
			storage.Cond{Field: "age", Op: storage.OpExists, Value: true},
			"jsonb_exists(data, $1)",
			[]any{"age"},
		},
		{
			"not exists",
			storage.Cond{Field: "age", Op: storage.OpExists, Value: false},
			"NOT jsonb_exists(data, $1)",
			[]any{"age"},
		},
		{
			"matches uses regex",
			storage.Cond{Field: "name", Op: storage.OpMatches, Value: "^a"},
			"data->>'name' ~* $1",
			[]any{"^a"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newArgs(t)
			got, err := condSQL(b, tc.cond)
			if err != nil {
				t.Fatalf("condSQL: %v", err)
			}
			if got != tc.want {
				t.Errorf("sql = %q, want %q", got, tc.want)
			}
			if len(b.Args()) != len(tc.args) {
				t.Errorf("args = %v, want %v", b.Args(), tc.args)
			}
		})
	}
}

func TestCondSQLRejectsBadField(t *testing.T) {
	b := newArgs(t)
	if _, err := condSQL(b, storage.Cond{Field: "x'; DROP TABLE", Op: storage.OpEqual, Value: 1}); err == nil {
		t.Fatalf("field names must be validated")
	}
}

func TestWhereSQLJoinsWithAnd(t *testing.T) {
	b := newArgs(t)
	got, err := whereSQL(b, storage.Filter{Conds: []storage.Cond{
		{Field: "role", Op: storage.OpEqual, Value: "admin"},
		{Field: "age", Op: storage.OpGt, Value: 18.0},
	}})
	if err != nil {
		t.Fatalf("whereSQL: %v", err)
	}
	want := " WHERE data->>'role' = $1 AND (data->>'age')::numeric > $2"
	if got != want {
		t.Errorf("sql = %q, want %q", got, want)
	}
}

func TestUpdateExpr(t *testing.T) {
	b := newArgs(t)
	got, err := updateExpr(b, storage.Update{
		Set:   map[string]any{"role": "admin"},
		Unset: []string{"temp"},
		Inc:   map[string]float64{"visits": 2},
	})
	if err != nil {
		t.Fatalf("updateExpr: %v", err)
	}
	for _, fragment := range []string{
		"jsonb_set(data, '{role}', $1::jsonb, true)",
		"- 'temp'",
		"COALESCE((data->>'visits')::numeric, 0) + $2",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("expression %q missing fragment %q", got, fragment)
		}
	}
	if b.Args()[0] != `"admin"` {
		t.Errorf("set value must be bound as JSON, got %v", b.Args()[0])
	}
}
