package minodm_test

import (
	"context"
	"testing"
	"time"

	"github.com/minodm/minodm/minodm"
	"github.com/minodm/minodm/minodm/query"
)

func singleFieldSchema(t *testing.T, name string, f *minodm.Field) *minodm.Schema {
	t.Helper()
	s, err := minodm.NewSchema([]minodm.FieldDef{minodm.F(name, f)}, minodm.SchemaOptions{})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func initValue(t *testing.T, s *minodm.Schema, name string, v any) error {
	t.Helper()
	_, err := s.Init(context.Background(), map[string]any{name: v})
	return err
}

func TestFieldKindChecks(t *testing.T) {
	cases := []struct {
		name  string
		field *minodm.Field
		ok    []any
		bad   []any
	}{
		{"string", minodm.String(), []any{"x", nil}, []any{7, true}},
		{"number", minodm.Number(), []any{7, 7.5, int64(3), nil}, []any{"7", true}},
		{"bool", minodm.Bool(), []any{true, false, nil}, []any{"true", 1}},
		{"date", minodm.Date(), []any{"2025-01-02", "2025-01-02T10:00:00Z", time.Now(), nil}, []any{"january", 17}},
		{"object", minodm.Object(), []any{map[string]any{"a": 1}, nil}, []any{"x", []any{}}},
		{"any", minodm.Any(), []any{"x", 7, true, nil, map[string]any{}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := singleFieldSchema(t, "f", tc.field)
			for _, v := range tc.ok {
				if err := initValue(t, s, "f", v); err != nil {
					t.Errorf("value %#v rejected: %v", v, err)
				}
			}
			for _, v := range tc.bad {
				if err := initValue(t, s, "f", v); !minodm.IsKind(err, minodm.ErrValidation) {
					t.Errorf("value %#v accepted, want validation error (got %v)", v, err)
				}
			}
		})
	}
}

func TestCustomValidator(t *testing.T) {
	f := minodm.Number().Validate(func(_ context.Context, v any, _ map[string]any) (bool, error) {
		n, _ := v.(float64)
		return n >= 0, nil
	})
	s := singleFieldSchema(t, "age", f)
	if err := initValue(t, s, "age", 30.0); err != nil {
		t.Fatalf("valid value rejected: %v", err)
	}
	if err := initValue(t, s, "age", -1.0); !minodm.IsKind(err, minodm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCELRule(t *testing.T) {
	f := minodm.String().Rule(`value in ["admin", "user", "guest"]`)
	s := singleFieldSchema(t, "role", f)
	if err := initValue(t, s, "role", "admin"); err != nil {
		t.Fatalf("allowed role rejected: %v", err)
	}
	if err := initValue(t, s, "role", "root"); !minodm.IsKind(err, minodm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCELRuleSeesDocument(t *testing.T) {
	f := minodm.Number().Rule(`doc.min <= value`)
	s, err := minodm.NewSchema([]minodm.FieldDef{
		minodm.F("min", minodm.Number()),
		minodm.F("max", f),
	}, minodm.SchemaOptions{})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Init(ctx, map[string]any{"min": 1.0, "max": 5.0}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := s.Init(ctx, map[string]any{"min": 9.0, "max": 5.0}); !minodm.IsKind(err, minodm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestObjectJSONSchema(t *testing.T) {
	schemaJSON := []byte(`{
		"type": "object",
		"properties": {"street": {"type": "string"}},
		"required": ["street"]
	}`)
	f := minodm.Object().JSONSchema(schemaJSON)
	s := singleFieldSchema(t, "address", f)
	if err := initValue(t, s, "address", map[string]any{"street": "Main"}); err != nil {
		t.Fatalf("conforming object rejected: %v", err)
	}
	if err := initValue(t, s, "address", map[string]any{"city": "Oslo"}); !minodm.IsKind(err, minodm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNumberCast(t *testing.T) {
	f := minodm.Number()
	if got := f.CastValue(7); got != 7.0 {
		t.Errorf("CastValue(7) = %#v, want float64 7", got)
	}
}

func TestDateCast(t *testing.T) {
	f := minodm.Date()
	ts := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	if got := f.CastValue(ts); got != "2025-01-02T10:00:00Z" {
		t.Errorf("CastValue(time) = %#v", got)
	}
}

func TestUnboundFieldInit(t *testing.T) {
	f := minodm.String()
	if _, err := f.Init(context.Background(), map[string]any{}); !minodm.IsKind(err, minodm.ErrUnbound) {
		t.Fatalf("expected unbound error, got %v", err)
	}
}

func TestQueryOperationsPerKind(t *testing.T) {
	s, err := minodm.NewSchema([]minodm.FieldDef{
		minodm.F("name", minodm.String()),
		minodm.F("age", minodm.Number()),
		minodm.F("active", minodm.Bool()),
	}, minodm.SchemaOptions{})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	b := query.NewBuilder()
	name, _ := s.Field("name")
	age, _ := s.Field("age")
	active, _ := s.Field("active")

	if _, ok := name.QueryOperations(b)[query.Matches]; !ok {
		t.Errorf("string fields must support MATCHES")
	}
	ops := age.QueryOperations(b)
	for _, op := range []query.Operator{query.Gt, query.Gte, query.Lt, query.Lte, query.Inc} {
		if _, ok := ops[op]; !ok {
			t.Errorf("number fields must support %s", op)
		}
	}
	if _, ok := active.QueryOperations(b)[query.Gt]; ok {
		t.Errorf("bool fields must not support GT")
	}
	if _, ok := active.QueryOperations(b, query.Gt)[query.Gt]; !ok {
		t.Errorf("caller extras must be honored")
	}
}

func TestParseDate(t *testing.T) {
	ms, err := minodm.ParseDate("1970-01-01")
	if err != nil || ms != 0 {
		t.Errorf("ParseDate(1970-01-01) = %d, %v", ms, err)
	}
	if _, err := minodm.ParseDate("not a date"); err == nil {
		t.Errorf("expected error for junk input")
	}
}
