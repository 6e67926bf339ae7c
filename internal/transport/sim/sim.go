// internal/transport/sim/sim.go
package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Transport implements the connection's transport against in-memory
// data blocks instead of a physical PLC. It backs tests and local
// development when no device is reachable.
type Transport struct {
	blocks map[int][]byte
	mutex  sync.Mutex
	isOpen bool
	logger *zap.Logger
}

// NewTransport creates a simulated PLC holding the given data blocks.
// Block contents are copied; the caller's slices stay untouched.
func NewTransport(blocks map[int][]byte, logger *zap.Logger) *Transport {
	owned := make(map[int][]byte, len(blocks))
	for db, data := range blocks {
		cp := make([]byte, len(data))
		copy(cp, data)
		owned[db] = cp
	}
	return &Transport{
		blocks: owned,
		logger: logger.With(zap.String("transport", "sim")),
	}
}

// Connect opens the simulated session
func (t *Transport) Connect(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.isOpen = true
	t.logger.Info("Simulated PLC session established")
	return nil
}

// Close ends the simulated session
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.isOpen = false
	return nil
}

// ReadArea returns a copy of the requested span
func (t *Transport) ReadArea(ctx context.Context, dbNumber, start, length int) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.isOpen {
		return nil, fmt.Errorf("sim: session not open")
	}
	block, ok := t.blocks[dbNumber]
	if !ok {
		return nil, fmt.Errorf("sim: data block %d does not exist", dbNumber)
	}
	if start < 0 || start+length > len(block) {
		return nil, fmt.Errorf("sim: span %d+%d outside data block %d (%d bytes)", start, length, dbNumber, len(block))
	}

	out := make([]byte, length)
	copy(out, block[start:])
	return out, nil
}

// WriteArea overwrites the addressed span of the data block
func (t *Transport) WriteArea(ctx context.Context, dbNumber, start int, data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.isOpen {
		return fmt.Errorf("sim: session not open")
	}
	block, ok := t.blocks[dbNumber]
	if !ok {
		return fmt.Errorf("sim: data block %d does not exist", dbNumber)
	}
	if start < 0 || start+len(data) > len(block) {
		return fmt.Errorf("sim: span %d+%d outside data block %d (%d bytes)", start, len(data), dbNumber, len(block))
	}

	copy(block[start:], data)
	return nil
}

// Poke overwrites part of a data block outside the session, the way a
// running PLC program changes values between reads
func (t *Transport) Poke(dbNumber, start int, data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	block, ok := t.blocks[dbNumber]
	if !ok {
		return fmt.Errorf("sim: data block %d does not exist", dbNumber)
	}
	if start < 0 || start+len(data) > len(block) {
		return fmt.Errorf("sim: span %d+%d outside data block %d (%d bytes)", start, len(data), dbNumber, len(block))
	}
	copy(block[start:], data)
	return nil
}

// Peek returns a copy of a whole data block for assertions
func (t *Transport) Peek(dbNumber int) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	block, ok := t.blocks[dbNumber]
	if !ok {
		return nil, fmt.Errorf("sim: data block %d does not exist", dbNumber)
	}
	out := make([]byte, len(block))
	copy(out, block)
	return out, nil
}
