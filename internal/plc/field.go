// internal/plc/field.go
package plc

import "fmt"

// FieldSpec represents one named variable mapped onto a byte/bit
// position within a data block. Specs are immutable after the schema
// holding them has been built.
type FieldSpec struct {
	Name       string  `json:"name"`
	Type       TypeTag `json:"type"`
	ByteOffset int     `json:"byte_offset"`
	BitOffset  uint8   `json:"bit_offset"` // meaningful for BOOL only
	Settable   bool    `json:"settable"`

	// Default optionally seeds the value cache before the first read.
	// Fields without a default yield ErrUninitializedField until the
	// device has been read once.
	Default any `json:"default,omitempty"`
}

// validate checks a single spec in isolation. Cross-field checks
// (duplicate names) belong to the schema builder.
func (f FieldSpec) validate() error {
	if f.Name == "" {
		return fmt.Errorf("plc: field name must not be empty")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: field %q declares %q", ErrUnknownType, f.Name, string(f.Type))
	}
	if f.ByteOffset < 0 {
		return fmt.Errorf("%w: field %q has negative byte offset %d", ErrFieldRange, f.Name, f.ByteOffset)
	}
	if f.BitOffset > 7 {
		return fmt.Errorf("%w: field %q has bit offset %d, must be < 8", ErrFieldRange, f.Name, f.BitOffset)
	}
	if f.Type != TypeBool && f.BitOffset != 0 {
		return fmt.Errorf("%w: field %q is %s, bit offsets apply to BOOL only", ErrFieldRange, f.Name, f.Type)
	}
	if f.Default != nil {
		if _, err := coerceValue(f.Type, f.Default); err != nil {
			return fmt.Errorf("field %q default: %w", f.Name, err)
		}
	}
	return nil
}

// Coerce validates a candidate value against the field type and
// normalizes it to the codec's canonical Go type
func (f FieldSpec) Coerce(value any) (any, error) {
	return coerceValue(f.Type, value)
}

// end returns the first buffer offset past the field
func (f FieldSpec) end() int {
	return f.ByteOffset + f.Type.Width()
}
