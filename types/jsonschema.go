package types

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/value"
)

// schemaValidator implements Schema against a compiled JSON Schema document.
// Object field maps are re-encoded to JSON before validation since
// santhosh-tekuri/jsonschema validates decoded JSON values (map[string]any),
// not the loader's own Value representation.
type schemaValidator struct {
	compiled *jsonschema.Schema
}

// CompileSchema compiles a JSON Schema document (already unmarshalled into
// an any, e.g. from json.Unmarshal or yaml.v3's map[string]any output) into a
// Schema usable with WithSchema.
func CompileSchema(name string, doc any) (Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, ferr.Wrap(ferr.BackendError, "add schema resource "+name, err)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return nil, ferr.Wrap(ferr.BackendError, "compile schema "+name, err)
	}
	return &schemaValidator{compiled: compiled}, nil
}

// Validate implements Schema.
func (s *schemaValidator) Validate(fields map[string]*value.Value) (err error) {
	doc, err := fieldsToJSONDoc(fields)
	if err != nil {
		return ferr.Wrap(ferr.SignatureMismatch, "encode fields for schema validation", err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return ferr.Wrap(ferr.SignatureMismatch, "schema validation failed", err)
	}
	return nil
}

// fieldsToJSONDoc converts a field map of Values into a plain
// map[string]any suitable for jsonschema.Schema.Validate. Numeric fields go
// through their canonical string form, bool and string fields are read
// directly, and null becomes nil. Every other kind (containers included) is
// rejected: schema validation only covers scalar object shapes.
func fieldsToJSONDoc(fields map[string]*value.Value) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		jv, err := scalarToJSON(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = jv
	}
	return out, nil
}

func scalarToJSON(v *value.Value) (any, error) {
	switch v.TypeID() {
	case value.Bool:
		return v.ToBool()
	case value.Char, value.Short, value.Int, value.Long:
		s, err := toCanonicalString(v)
		if err != nil {
			return nil, err
		}
		var n json.Number
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			return nil, err
		}
		return n, nil
	case value.Float, value.Double:
		s, err := toCanonicalString(v)
		if err != nil {
			return nil, err
		}
		var n json.Number
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			return nil, err
		}
		return n, nil
	case value.String:
		return v.ToString()
	case value.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("kind %s has no JSON Schema representation", v.TypeID())
	}
}

// toCanonicalString reads a numeric Value's text form without consuming it,
// by casting a copy.
func toCanonicalString(v *value.Value) (string, error) {
	cp, err := v.Copy()
	if err != nil {
		return "", err
	}
	s, err := value.Cast(cp, value.String)
	if err != nil {
		return "", err
	}
	return s.ToString()
}
