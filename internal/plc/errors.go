// internal/plc/errors.go
package plc

import (
	"errors"
	"fmt"
)

// Schema construction errors. These surface at definition time,
// before any connection exists.
var (
	ErrDuplicateField = errors.New("plc: duplicate field name")
	ErrUnknownType    = errors.New("plc: unknown field type")
	ErrFieldRange     = errors.New("plc: field position out of range")
)

// Field access errors
var (
	ErrUnknownField       = errors.New("plc: unknown field")
	ErrImmutableField     = errors.New("plc: field is not settable")
	ErrTypeMismatch       = errors.New("plc: value not representable in field type")
	ErrUninitializedField = errors.New("plc: field has no value before first read")
)

// Connection state machine errors
var (
	ErrNotConnected     = errors.New("plc: not connected")
	ErrAlreadyConnected = errors.New("plc: already connected")
)

// TransportError wraps a failure of the underlying device transport.
// The buffer is left unmodified when it occurs, so callers can retry
// the same operation without losing local state.
type TransportError struct {
	Op  string // "connect", "read" or "write"
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("plc: transport %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport failure
func (e *TransportError) Unwrap() error {
	return e.Err
}
