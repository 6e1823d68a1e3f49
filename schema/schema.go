// Package schema compiles JSON Schema documents used to check JSON tool inputs.
//
//	search := reactlm.NewToolFunc("search", "Search the web", searchFn).
//	    WithSchema(schema.MustCompile(schema.Object(map[string]*schema.Property{
//	        "query": schema.String("Search query").MinLength(1),
//	        "count": schema.Integer("Result count").Min(1).Max(20),
//	    }, "query")))
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const resourceName = "schema.json"

// Schema is a compiled JSON Schema. A nil *Schema accepts everything.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the schema document the validator was compiled from.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks data against the schema.
func (s *Schema) Validate(data map[string]any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	// The validator expects values as produced by its own JSON decoder, so the
	// input is normalized first (ints become json.Number, structs become maps).
	doc, err := normalize(data)
	if err != nil {
		return &ValidationError{Err: err}
	}
	if err := s.compiled.Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func normalize(data map[string]any) (any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// ValidationError reports input that does not conform to a schema.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a schema document. A nil document compiles to a nil *Schema.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("schema: encode: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}
	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Builders
// -----------------------------------------------------------------------------

// Object builds an object schema. Names listed in required must be present.
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, p := range properties {
		props[name] = p.build()
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

// Property is one entry of an object schema.
type Property struct {
	fields map[string]any
}

func newProperty(typ, description string) *Property {
	p := &Property{fields: map[string]any{"type": typ}}
	if description != "" {
		p.fields["description"] = description
	}
	return p
}

func (p *Property) set(key string, value any) *Property {
	p.fields[key] = value
	return p
}

func (p *Property) build() map[string]any {
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// String creates a string property.
func String(description string) *Property { return newProperty("string", description) }

// Integer creates an integer property.
func Integer(description string) *Property { return newProperty("integer", description) }

// Number creates a floating point property.
func Number(description string) *Property { return newProperty("number", description) }

// Boolean creates a boolean property.
func Boolean(description string) *Property { return newProperty("boolean", description) }

// Array creates an array property whose elements match items.
func Array(description string, items map[string]any) *Property {
	return newProperty("array", description).set("items", items)
}

// Enum restricts the property to the given values.
func (p *Property) Enum(values ...any) *Property { return p.set("enum", values) }

// Min sets the inclusive lower bound of a numeric property.
func (p *Property) Min(v float64) *Property { return p.set("minimum", v) }

// Max sets the inclusive upper bound of a numeric property.
func (p *Property) Max(v float64) *Property { return p.set("maximum", v) }

// MinLength sets the minimum length of a string property.
func (p *Property) MinLength(n int) *Property { return p.set("minLength", n) }

// MaxLength sets the maximum length of a string property.
func (p *Property) MaxLength(n int) *Property { return p.set("maxLength", n) }

// Pattern sets the regular expression a string property must match.
func (p *Property) Pattern(re string) *Property { return p.set("pattern", re) }

// Default records the default value of the property.
func (p *Property) Default(v any) *Property { return p.set("default", v) }
