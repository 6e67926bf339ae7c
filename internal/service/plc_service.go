// internal/service/plc_service.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"plc-service/internal/config"
	"plc-service/internal/plc"
	"plc-service/internal/utils"
)

// PLCService drives one PLC connection on behalf of the API layer.
// The connection and its buffer are not internally synchronized, so
// every operation goes through the service mutex; this is the
// external locking the core documents as a caller obligation.
type PLCService struct {
	conn   *plc.Connection
	config *config.PLCConfig
	logger *utils.ServiceLogger
	bus    *EventBus

	mutex        sync.Mutex
	lastExchange time.Time
}

// StatusInfo represents the connection's observable state
type StatusInfo struct {
	State        plc.State  `json:"state"`
	Alive        bool       `json:"alive"`
	LastExchange *time.Time `json:"last_exchange,omitempty"`
	DBNumber     int        `json:"db_number"`
	BufferLength int        `json:"buffer_length"`
	DirtyFields  []string   `json:"dirty_fields,omitempty"`
}

// NewPLCService creates a new PLC service instance
func NewPLCService(conn *plc.Connection, cfg *config.PLCConfig, logger *zap.Logger) *PLCService {
	return &PLCService{
		conn:   conn,
		config: cfg,
		logger: utils.NewServiceLogger(logger, "plc-service"),
		bus:    NewEventBus(logger),
	}
}

// Bus returns the event bus carrying data-change notifications
func (s *PLCService) Bus() *EventBus {
	return s.bus
}

// Connect opens the device session
func (s *PLCService) Connect(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.conn.Connect(ctx); err != nil {
		return err
	}
	s.lastExchange = time.Now()
	s.publishConnection(string(plc.StateConnected))
	return nil
}

// Disconnect releases the device session
func (s *PLCService) Disconnect() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	wasConnected := s.conn.State() == plc.StateConnected
	if err := s.conn.Disconnect(); err != nil {
		return err
	}
	if wasConnected {
		s.publishConnection(string(plc.StateDisconnected))
	}
	return nil
}

// Read pulls the data block from the device and returns the decoded
// snapshot
func (s *PLCService) Read(ctx context.Context) (map[string]any, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.conn.Read(ctx); err != nil {
		return nil, err
	}
	s.lastExchange = time.Now()

	snapshot := s.conn.Buffer().Snapshot()
	s.bus.Publish(Event{
		Type:      EventSnapshot,
		Data:      snapshot,
		Timestamp: time.Now(),
	})
	return snapshot, nil
}

// Write flushes pending local changes to the device
func (s *PLCService) Write(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	pending := s.conn.Buffer().Dirty()
	if err := s.conn.Write(ctx); err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	s.lastExchange = time.Now()

	data := make(map[string]any, len(pending))
	for _, name := range pending {
		if v, err := s.conn.Get(name); err == nil {
			data[name] = v
		}
	}
	s.bus.Publish(Event{
		Type:      EventWrite,
		Data:      data,
		Timestamp: time.Now(),
	})
	return nil
}

// Get returns the cached value of one field
func (s *PLCService) Get(name string) (any, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conn.Get(name)
}

// Set updates one settable field locally, marking it for the next
// write
func (s *PLCService) Set(name string, value any) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.conn.Set(name, value); err != nil {
		return err
	}
	v, _ := s.conn.Get(name)
	s.bus.Publish(Event{
		Type:      EventFieldSet,
		Data:      map[string]any{name: v},
		Timestamp: time.Now(),
	})
	return nil
}

// SetMany applies several settable fields in one call, skipping
// values that already match the cache. It reports whether anything
// changed. Unknown or read-only names fail the whole call; fields
// applied before the failing one stay set, pending the next write.
func (s *PLCService) SetMany(values map[string]any) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	changed := make(map[string]any)
	for name, value := range values {
		spec, err := s.conn.Schema().Lookup(name)
		if err != nil {
			return len(changed) > 0, err
		}
		coerced, err := spec.Coerce(value)
		if err == nil {
			if current, gerr := s.conn.Get(name); gerr == nil && current == coerced {
				continue
			}
		}
		if err := s.conn.Set(name, value); err != nil {
			return len(changed) > 0, err
		}
		changed[name], _ = s.conn.Get(name)
	}

	if len(changed) == 0 {
		return false, nil
	}
	s.bus.Publish(Event{
		Type:      EventFieldSet,
		Data:      changed,
		Timestamp: time.Now(),
	})
	return true, nil
}

// Snapshot returns every initialized field value
func (s *PLCService) Snapshot() map[string]any {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conn.Buffer().Snapshot()
}

// Fields returns the schema's field specs in declaration order
func (s *PLCService) Fields() []plc.FieldSpec {
	return s.conn.Schema().Fields()
}

// Status reports the connection state and liveness. Alive means the
// last successful exchange with the device happened within the
// configured liveness window.
func (s *PLCService) Status() StatusInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	info := StatusInfo{
		State:        s.conn.State(),
		DBNumber:     s.config.DBNumber,
		BufferLength: s.conn.Schema().BufferLength(),
		DirtyFields:  s.conn.Buffer().Dirty(),
	}
	if !s.lastExchange.IsZero() {
		t := s.lastExchange
		info.LastExchange = &t
		info.Alive = time.Since(t) <= s.config.LivenessWindow
	}
	return info
}

// StartPolling launches a background read cycle when a poll interval
// is configured. Each tick performs one read and broadcasts the
// snapshot; failed cycles are logged and skipped, never retried
// inside the loop.
func (s *PLCService) StartPolling(ctx context.Context) {
	if s.config.PollInterval <= 0 {
		return
	}
	go s.pollLoop(ctx)
}

// pollLoop is the ticker-driven reader. One goroutine, no overlap.
func (s *PLCService) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("Polling started",
		zap.Duration("interval", s.config.PollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Polling stopped")
			return
		case <-ticker.C:
			if _, err := s.Read(ctx); err != nil {
				s.logger.Warn("Poll cycle failed", zap.Error(err))
			}
		}
	}
}

// publishConnection emits a connection state transition. Callers hold
// the service mutex.
func (s *PLCService) publishConnection(state string) {
	s.bus.Publish(Event{
		Type:      EventConnection,
		Data:      map[string]any{"state": state},
		Timestamp: time.Now(),
	})
}
