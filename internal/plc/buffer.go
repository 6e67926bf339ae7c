// internal/plc/buffer.go
package plc

import "fmt"

// Buffer represents the local mirror of one device data block: the
// raw byte image, a per-field decoded value cache, and the set of
// settable fields whose cached value diverged from the device since
// the last successful write.
//
// A buffer is owned by exactly one connection and is not internally
// synchronized. Callers sharing it across goroutines must lock
// externally (the service layer does).
type Buffer struct {
	schema *Schema
	bytes  []byte
	cache  map[string]any
	dirty  map[string]struct{}
}

// NewBuffer creates a zeroed buffer for the schema. Fields declaring
// a default are seeded into the cache; all others stay uninitialized
// until the first read.
func NewBuffer(schema *Schema) *Buffer {
	b := &Buffer{
		schema: schema,
		bytes:  make([]byte, schema.BufferLength()),
		cache:  make(map[string]any, schema.Len()),
		dirty:  make(map[string]struct{}),
	}
	for _, f := range schema.fields {
		if f.Default == nil {
			continue
		}
		// validated at schema build time
		v, _ := coerceValue(f.Type, f.Default)
		b.cache[f.Name] = v
		encodeField(f, b.bytes, v)
	}
	return b
}

// Get returns the cached value of a field. Non-settable fields only
// ever change through Load, so the value is whatever the device
// reported last.
func (b *Buffer) Get(name string) (any, error) {
	if _, err := b.schema.Lookup(name); err != nil {
		return nil, err
	}
	v, ok := b.cache[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUninitializedField, name)
	}
	return v, nil
}

// Set updates the cached value of a settable field and marks it
// dirty. No device I/O happens here; pushing the change is an
// explicit Write on the connection. Validation order is fixed:
// existence, then mutability, then type. A failed Set leaves cache
// and dirty set untouched.
func (b *Buffer) Set(name string, value any) error {
	f, err := b.schema.Lookup(name)
	if err != nil {
		return err
	}
	if !f.Settable {
		return fmt.Errorf("%w: %q", ErrImmutableField, name)
	}
	v, err := coerceValue(f.Type, value)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	b.cache[name] = v
	b.dirty[name] = struct{}{}
	return nil
}

// Load replaces the byte image wholesale and re-decodes every field
// into the cache, dropping any pending local changes. The data must
// cover the full buffer length; nothing is modified otherwise.
func (b *Buffer) Load(data []byte) error {
	if len(data) < len(b.bytes) {
		return fmt.Errorf("plc: image too short: got %d bytes, need %d", len(data), len(b.bytes))
	}
	copy(b.bytes, data)
	for _, f := range b.schema.fields {
		b.cache[f.Name] = decodeField(f, b.bytes)
	}
	clear(b.dirty)
	return nil
}

// flush re-encodes every dirty field into the byte image and returns
// a copy ready to push to the device. The dirty set is kept; the
// caller clears it only after the transport acknowledged the write.
func (b *Buffer) flush() []byte {
	for name := range b.dirty {
		f, _ := b.schema.Lookup(name)
		encodeField(f, b.bytes, b.cache[name])
	}
	out := make([]byte, len(b.bytes))
	copy(out, b.bytes)
	return out
}

// clearDirty marks all pending changes as synchronized
func (b *Buffer) clearDirty() {
	clear(b.dirty)
}

// DirtyCount returns the number of fields pending write
func (b *Buffer) DirtyCount() int {
	return len(b.dirty)
}

// Dirty returns the names of fields pending write, in declaration
// order so logs stay deterministic.
func (b *Buffer) Dirty() []string {
	if len(b.dirty) == 0 {
		return nil
	}
	out := make([]string, 0, len(b.dirty))
	for _, f := range b.schema.fields {
		if _, ok := b.dirty[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// Bytes returns a copy of the current byte image
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.bytes))
	copy(out, b.bytes)
	return out
}

// Snapshot returns the decoded value of every initialized field
func (b *Buffer) Snapshot() map[string]any {
	out := make(map[string]any, len(b.cache))
	for name, v := range b.cache {
		out[name] = v
	}
	return out
}
