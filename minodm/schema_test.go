package minodm_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minodm/minodm/minodm"
)

func userSchema(t *testing.T, policy minodm.Policy) *minodm.Schema {
	t.Helper()
	s, err := minodm.NewSchema([]minodm.FieldDef{
		minodm.F("firstName", minodm.String().Required()),
		minodm.F("role", minodm.String().Default("user")),
		minodm.F("age", minodm.Number()),
		minodm.F("active", minodm.Bool().Default(true)),
	}, minodm.SchemaOptions{UndefinedPropertyPolicy: policy})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestNewSchemaRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		defs []minodm.FieldDef
	}{
		{"empty", nil},
		{"bad name", []minodm.FieldDef{minodm.F("first name", minodm.String())}},
		{"reserved", []minodm.FieldDef{minodm.F("_id", minodm.String())}},
		{"duplicate", []minodm.FieldDef{
			minodm.F("a", minodm.String()),
			minodm.F("a", minodm.Number()),
		}},
		{"nil type", []minodm.FieldDef{{Name: "a", Type: nil}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := minodm.NewSchema(tc.defs, minodm.SchemaOptions{}); !minodm.IsKind(err, minodm.ErrSchema) {
				t.Errorf("expected schema error, got %v", err)
			}
		})
	}
}

func TestNewSchemaRejectsSharedField(t *testing.T) {
	shared := minodm.String()
	if _, err := minodm.NewSchema([]minodm.FieldDef{minodm.F("a", shared)}, minodm.SchemaOptions{}); err != nil {
		t.Fatalf("first schema: %v", err)
	}
	if _, err := minodm.NewSchema([]minodm.FieldDef{minodm.F("b", shared)}, minodm.SchemaOptions{}); !minodm.IsKind(err, minodm.ErrSchema) {
		t.Fatalf("a field must not belong to two schemas, got %v", err)
	}
}

func TestFieldNamesKeepDeclarationOrder(t *testing.T) {
	s := userSchema(t, "")
	want := []string{"firstName", "role", "age", "active"}
	if diff := cmp.Diff(want, s.FieldNames()); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestInitFillsDefaultsAndKeepsValues(t *testing.T) {
	s := userSchema(t, "")
	raw := map[string]any{"firstName": "Ann", "age": 30.0}
	got, err := s.Init(context.Background(), raw)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	want := map[string]any{
		"firstName": "Ann",
		"role":      "user",
		"age":       30.0,
		"active":    true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestInitDoesNotEnforceRequired(t *testing.T) {
	s := userSchema(t, "")
	raw := map[string]any{}
	if _, err := s.Init(context.Background(), raw); err != nil {
		t.Fatalf("Init must tolerate a missing required field: %v", err)
	}
	if _, ok := raw["firstName"]; ok {
		t.Errorf("field without default must stay absent")
	}
	if err := s.ValidateDocument(context.Background(), raw); !minodm.IsKind(err, minodm.ErrValidation) {
		t.Errorf("ValidateDocument must reject the missing required field, got %v", err)
	}
}

func TestInitRejectsInvalidValue(t *testing.T) {
	s := userSchema(t, "")
	raw := map[string]any{"firstName": 7}
	_, err := s.Init(context.Background(), raw)
	if !minodm.IsKind(err, minodm.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var e *minodm.Error
	if !errors.As(err, &e) || e.Field != "firstName" {
		t.Errorf("error must carry the field name, got %+v", err)
	}
}

func TestInitFailureLeavesRawUntouched(t *testing.T) {
	s := userSchema(t, "")
	raw := map[string]any{"firstName": "Ann", "age": "not a number"}
	if _, err := s.Init(context.Background(), raw); err == nil {
		t.Fatal("expected validation error")
	}
	want := map[string]any{"firstName": "Ann", "age": "not a number"}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("failed Init must not write defaults (-want +got):\n%s", diff)
	}
}

func TestInitDefaultProducerRunsOncePerDocument(t *testing.T) {
	var calls atomic.Int32
	s, err := minodm.NewSchema([]minodm.FieldDef{
		minodm.F("serial", minodm.Number().DefaultFunc(func(ctx context.Context) (any, error) {
			return float64(calls.Add(1)), nil
		})),
	}, minodm.SchemaOptions{})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	raw := map[string]any{}
	if _, err := s.Init(context.Background(), raw); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if raw["serial"] != 1.0 {
		t.Fatalf("serial = %v, want 1", raw["serial"])
	}
	// Second pass sees the value present and must not re-run the producer.
	if _, err := s.Init(context.Background(), raw); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("producer ran %d times, want 1", got)
	}
}

func TestInitConcurrentOverDocuments(t *testing.T) {
	s := userSchema(t, "")
	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			raw := map[string]any{"firstName": "Ann"}
			_, err := s.Init(context.Background(), raw)
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Init: %v", err)
		}
	}
}

func TestUndefinedPropertyPolicies(t *testing.T) {
	base := map[string]any{"firstName": "Ann", "zz_extra": 1, "aa_extra": 2}

	t.Run("erase", func(t *testing.T) {
		s := userSchema(t, minodm.PolicyErase)
		raw := map[string]any{}
		for k, v := range base {
			raw[k] = v
		}
		if _, err := s.Init(context.Background(), raw); err != nil {
			t.Fatalf("Init: %v", err)
		}
		if _, ok := raw["zz_extra"]; ok {
			t.Errorf("erase policy must drop undefined keys")
		}
	})

	t.Run("error reports first key lexically", func(t *testing.T) {
		s := userSchema(t, minodm.PolicyError)
		raw := map[string]any{}
		for k, v := range base {
			raw[k] = v
		}
		_, err := s.Init(context.Background(), raw)
		if !minodm.IsKind(err, minodm.ErrUnknownProperty) {
			t.Fatalf("expected unknown-property error, got %v", err)
		}
		var e *minodm.Error
		if !errors.As(err, &e) || e.Field != "aa_extra" {
			t.Errorf("expected aa_extra reported, got %+v", err)
		}
	})

	t.Run("keep", func(t *testing.T) {
		s := userSchema(t, minodm.PolicyKeep)
		raw := map[string]any{}
		for k, v := range base {
			raw[k] = v
		}
		if _, err := s.Init(context.Background(), raw); err != nil {
			t.Fatalf("Init: %v", err)
		}
		if raw["zz_extra"] != 1 {
			t.Errorf("keep policy must leave undefined keys alone")
		}
	})
}

func TestInitKeepsReservedIDKey(t *testing.T) {
	s := userSchema(t, minodm.PolicyErase)
	raw := map[string]any{"firstName": "Ann", "_id": "u-1"}
	if _, err := s.Init(context.Background(), raw); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if raw["_id"] != "u-1" {
		t.Errorf("the id key must survive the erase policy")
	}
}

func TestInitInstanceBuildsFreshDocument(t *testing.T) {
	s := userSchema(t, "")
	src := map[string]any{"firstName": "Ann", "junk": true}
	got, err := s.InitInstance(context.Background(), src)
	if err != nil {
		t.Fatalf("InitInstance: %v", err)
	}
	want := map[string]any{
		"firstName": "Ann",
		"role":      "user",
		"age":       nil,
		"active":    true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("instance mismatch (-want +got):\n%s", diff)
	}
	if _, ok := src["role"]; ok {
		t.Errorf("InitInstance must not mutate its source")
	}
}

func TestValidateDocumentAcceptsComplete(t *testing.T) {
	s := userSchema(t, "")
	doc := map[string]any{"firstName": "Ann", "role": "admin", "age": 30.0, "active": false}
	if err := s.ValidateDocument(context.Background(), doc); err != nil {
		t.Fatalf("ValidateDocument: %v", err)
	}
}
