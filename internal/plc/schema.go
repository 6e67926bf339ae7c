// internal/plc/schema.go
package plc

import "fmt"

// Schema represents an ordered, immutable set of field specs mapped
// onto one data block. It is built once via SchemaBuilder and may be
// shared read-only by any number of connections.
type Schema struct {
	fields       []FieldSpec
	byName       map[string]int
	bufferLength int
}

// SchemaBuilder collects field specs in declaration order and
// validates them eagerly on Build. The zero value is not usable;
// create builders with NewSchemaBuilder.
type SchemaBuilder struct {
	fields []FieldSpec
}

// NewSchemaBuilder creates an empty schema builder
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{}
}

// Add appends a field spec. Validation is deferred to Build so a
// declarative config loader can feed specs through without
// interleaving error handling.
func (sb *SchemaBuilder) Add(spec FieldSpec) *SchemaBuilder {
	sb.fields = append(sb.fields, spec)
	return sb
}

// Build validates all collected specs and produces the schema.
// Duplicate names fail; overlapping byte ranges do not. Reading one
// WORD as two BYTEs is a legitimate declaration, so disjointness is
// the caller's responsibility.
func (sb *SchemaBuilder) Build() (*Schema, error) {
	s := &Schema{
		fields: make([]FieldSpec, len(sb.fields)),
		byName: make(map[string]int, len(sb.fields)),
	}
	copy(s.fields, sb.fields)

	for i, f := range s.fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if _, exists := s.byName[f.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		s.byName[f.Name] = i
		if f.end() > s.bufferLength {
			s.bufferLength = f.end()
		}
	}
	return s, nil
}

// BufferLength returns the minimum byte count needed to address every
// field: max(byteOffset + width) over the schema.
func (s *Schema) BufferLength() int {
	return s.bufferLength
}

// Fields returns the specs in declaration order
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup returns the spec for a field name
func (s *Schema) Lookup(name string) (FieldSpec, error) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return s.fields[i], nil
}

// Len returns the number of declared fields
func (s *Schema) Len() int {
	return len(s.fields)
}
