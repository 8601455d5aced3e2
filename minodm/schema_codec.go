package minodm

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// schemaDoc is the serialized form of a schema. Fields are a list so that
// declaration order survives the round trip.
type schemaDoc struct {
	Policy string     `json:"policy,omitempty" yaml:"policy,omitempty"`
	Fields []fieldDoc `json:"fields" yaml:"fields"`
}

type fieldDoc struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty"`
	Rule     string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// Only literal defaults and CEL rules survive serialization; producer
// defaults, custom validators and cast hooks are code and must be attached
// after decoding.

func (s *Schema) doc() schemaDoc {
	d := schemaDoc{Policy: string(s.policy)}
	for _, name := range s.order {
		f := s.fields[name]
		fd := fieldDoc{
			Name:     name,
			Type:     string(f.kind),
			Required: f.required,
			Rule:     f.rule,
		}
		if f.hasDefault && f.defaultFunc == nil {
			fd.Default = f.defaultValue
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}

// ToJSON serializes the schema to JSON.
func (s *Schema) ToJSON() ([]byte, error) {
	return json.Marshal(s.doc())
}

// ToYAML serializes the schema to YAML.
func (s *Schema) ToYAML() ([]byte, error) {
	return yaml.Marshal(s.doc())
}

// SchemaFromJSON deserializes a schema from JSON.
func SchemaFromJSON(b []byte) (*Schema, error) {
	var d schemaDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, Wrap(ErrSchema, "invalid schema JSON", err)
	}
	return schemaFromDoc(d)
}

// SchemaFromYAML deserializes a schema from YAML.
func SchemaFromYAML(b []byte) (*Schema, error) {
	var d schemaDoc
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, Wrap(ErrSchema, "invalid schema YAML", err)
	}
	return schemaFromDoc(d)
}

func schemaFromDoc(d schemaDoc) (*Schema, error) {
	defs := make([]FieldDef, 0, len(d.Fields))
	for _, fd := range d.Fields {
		f, err := fieldForKind(Kind(fd.Type))
		if err != nil {
			return nil, SchemaError(fmt.Sprintf("field '%s': %v", fd.Name, err))
		}
		if fd.Required {
			f.Required()
		}
		if fd.Default != nil {
			f.Default(fd.Default)
		}
		if fd.Rule != "" {
			f.Rule(fd.Rule)
		}
		defs = append(defs, F(fd.Name, f))
	}
	return NewSchema(defs, SchemaOptions{UndefinedPropertyPolicy: Policy(d.Policy)})
}

func fieldForKind(k Kind) (*Field, error) {
	switch k {
	case KindAny, "":
		return Any(), nil
	case KindString:
		return String(), nil
	case KindNumber:
		return Number(), nil
	case KindBool:
		return Bool(), nil
	case KindDate:
		return Date(), nil
	case KindObject:
		return Object(), nil
	default:
		return nil, fmt.Errorf("unknown field type '%s'", k)
	}
}
