// internal/plc/types.go
package plc

import "fmt"

// TypeTag represents the PLC data type of a field
type TypeTag string

const (
	TypeBool  TypeTag = "BOOL"  // single bit within a byte
	TypeByte  TypeTag = "BYTE"  // 8-bit unsigned
	TypeWord  TypeTag = "WORD"  // 16-bit unsigned
	TypeInt   TypeTag = "INT"   // 16-bit signed
	TypeDWord TypeTag = "DWORD" // 32-bit unsigned
	TypeDInt  TypeTag = "DINT"  // 32-bit signed
	TypeReal  TypeTag = "REAL"  // 32-bit IEEE-754 float
)

// Width returns the number of buffer bytes the type occupies.
// Bool occupies one bit but still addresses a full byte.
func (t TypeTag) Width() int {
	switch t {
	case TypeBool, TypeByte:
		return 1
	case TypeWord, TypeInt:
		return 2
	case TypeDWord, TypeDInt, TypeReal:
		return 4
	default:
		return 0
	}
}

// Valid reports whether the tag is a known PLC type
func (t TypeTag) Valid() bool {
	return t.Width() > 0
}

// String returns the type name as used in schema declarations
func (t TypeTag) String() string {
	return string(t)
}

// ParseTypeTag parses a schema declaration type name (case sensitive,
// matching the S7 convention used in config files)
func ParseTypeTag(s string) (TypeTag, error) {
	tag := TypeTag(s)
	if !tag.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return tag, nil
}
