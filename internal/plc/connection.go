// internal/plc/connection.go
package plc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Transport abstracts the device session the connection drives. The
// connection depends on block geometry only; session setup, protocol
// framing and timeouts all live behind this interface.
type Transport interface {
	Connect(ctx context.Context) error
	ReadArea(ctx context.Context, dbNumber, start, length int) ([]byte, error)
	WriteArea(ctx context.Context, dbNumber, start int, data []byte) error
	Close() error
}

// State represents the connection lifecycle state
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnected    State = "CONNECTED"
)

// Connection represents one synchronized view of a device data block.
// It owns the buffer exclusively and orchestrates explicit, batched
// exchanges with the transport: Read pulls the whole block, Write
// pushes pending local changes. Field access never touches the
// network.
//
// Connection methods are not safe for concurrent use; one session,
// one caller at a time.
type Connection struct {
	schema    *Schema
	buffer    *Buffer
	transport Transport
	dbNumber  int
	state     State
	logger    *zap.Logger
}

// NewConnection creates a disconnected connection for the given data
// block number
func NewConnection(schema *Schema, transport Transport, dbNumber int, logger *zap.Logger) *Connection {
	return &Connection{
		schema:    schema,
		buffer:    NewBuffer(schema),
		transport: transport,
		dbNumber:  dbNumber,
		state:     StateDisconnected,
		logger: logger.With(
			zap.String("component", "plc-connection"),
			zap.Int("db_number", dbNumber),
		),
	}
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	return c.state
}

// Schema returns the schema this connection maps
func (c *Connection) Schema() *Schema {
	return c.schema
}

// Buffer exposes the connection's local mirror for inspection
func (c *Connection) Buffer() *Buffer {
	return c.buffer
}

// Connect opens the device session. Connecting an already connected
// connection is a programmer error: one session at a time, disconnect
// first.
func (c *Connection) Connect(ctx context.Context) error {
	if c.state == StateConnected {
		return ErrAlreadyConnected
	}
	if err := c.transport.Connect(ctx); err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	c.state = StateConnected
	c.logger.Info("Connected to PLC")
	return nil
}

// Disconnect closes the device session. It is idempotent so deferred
// cleanup on every exit path stays cheap.
func (c *Connection) Disconnect() error {
	if c.state == StateDisconnected {
		return nil
	}
	c.state = StateDisconnected
	if err := c.transport.Close(); err != nil {
		return &TransportError{Op: "disconnect", Err: err}
	}
	c.logger.Info("Disconnected from PLC")
	return nil
}

// Read pulls the full data block from the device, replaces the byte
// image and re-decodes every field. This is the only operation that
// changes non-settable field values. On any failure the buffer keeps
// its previous state; there is no partial update.
func (c *Connection) Read(ctx context.Context) error {
	if c.state != StateConnected {
		return ErrNotConnected
	}
	length := c.schema.BufferLength()
	data, err := c.transport.ReadArea(ctx, c.dbNumber, 0, length)
	if err != nil {
		c.logger.Error("Data block read failed", zap.Error(err))
		return &TransportError{Op: "read", Err: err}
	}
	if len(data) < length {
		err := fmt.Errorf("short read: got %d bytes, want %d", len(data), length)
		c.logger.Error("Data block read failed", zap.Error(err))
		return &TransportError{Op: "read", Err: err}
	}
	if err := c.buffer.Load(data); err != nil {
		return &TransportError{Op: "read", Err: err}
	}
	c.logger.Debug("Data block read", zap.Int("bytes", length))
	return nil
}

// Write re-encodes all dirty fields into the byte image and pushes
// the whole buffer to the device. Whole-buffer writes sidestep
// overlap-aware range merging; fields may legally overlap. With
// nothing dirty this is a no-op without a transport call. On
// transport failure the dirty set is preserved, so a caller-driven
// retry re-attempts exactly the pending changes.
func (c *Connection) Write(ctx context.Context) error {
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if c.buffer.DirtyCount() == 0 {
		return nil
	}
	pending := c.buffer.Dirty()
	data := c.buffer.flush()
	if err := c.transport.WriteArea(ctx, c.dbNumber, 0, data); err != nil {
		c.logger.Error("Data block write failed",
			zap.Strings("pending_fields", pending),
			zap.Error(err),
		)
		return &TransportError{Op: "write", Err: err}
	}
	c.buffer.clearDirty()
	c.logger.Debug("Data block written",
		zap.Int("bytes", len(data)),
		zap.Strings("fields", pending),
	)
	return nil
}

// Get returns the cached value of a field. Valid in any state; the
// cache survives disconnects.
func (c *Connection) Get(name string) (any, error) {
	return c.buffer.Get(name)
}

// Set updates a settable field locally and marks it dirty. All I/O
// stays batched behind Read and Write.
func (c *Connection) Set(name string, value any) error {
	return c.buffer.Set(name, value)
}
