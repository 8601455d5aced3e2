package minodm_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minodm/minodm/minodm"
)

const schemaYAML = `
policy: keep
fields:
  - name: firstName
    type: string
    required: true
  - name: role
    type: string
    default: user
    rule: 'value in ["admin", "user"]'
  - name: age
    type: number
`

func TestSchemaFromYAML(t *testing.T) {
	s, err := minodm.SchemaFromYAML([]byte(schemaYAML))
	if err != nil {
		t.Fatalf("SchemaFromYAML: %v", err)
	}
	if got := s.FieldNames(); !cmp.Equal(got, []string{"firstName", "role", "age"}) {
		t.Errorf("field order = %v", got)
	}
	if s.Policy() != minodm.PolicyKeep {
		t.Errorf("policy = %s, want keep", s.Policy())
	}

	raw := map[string]any{"firstName": "Ann"}
	if _, err := s.Init(context.Background(), raw); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if raw["role"] != "user" {
		t.Errorf("default not applied: %v", raw["role"])
	}
	if _, err := s.Init(context.Background(), map[string]any{"firstName": "B", "role": "root"}); !minodm.IsKind(err, minodm.ErrValidation) {
		t.Errorf("rule must survive decoding, got %v", err)
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	orig, err := minodm.NewSchema([]minodm.FieldDef{
		minodm.F("name", minodm.String().Required()),
		minodm.F("count", minodm.Number().Default(0.0)),
	}, minodm.SchemaOptions{UndefinedPropertyPolicy: minodm.PolicyError})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	b, err := orig.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := minodm.SchemaFromJSON(b)
	if err != nil {
		t.Fatalf("SchemaFromJSON: %v", err)
	}
	if !cmp.Equal(orig.FieldNames(), back.FieldNames()) {
		t.Errorf("field order lost: %v vs %v", orig.FieldNames(), back.FieldNames())
	}
	if back.Policy() != minodm.PolicyError {
		t.Errorf("policy lost: %s", back.Policy())
	}
	f, _ := back.Field("name")
	if !f.IsRequired() {
		t.Errorf("required flag lost")
	}
}

func TestSchemaFromJSONRejectsUnknownType(t *testing.T) {
	_, err := minodm.SchemaFromJSON([]byte(`{"fields":[{"name":"x","type":"blob"}]}`))
	if !minodm.IsKind(err, minodm.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}
