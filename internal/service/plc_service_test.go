// internal/service/plc_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plc-service/internal/config"
	"plc-service/internal/plc"
	"plc-service/internal/transport/sim"
)

func newTestService(t *testing.T) (*PLCService, *sim.Transport) {
	t.Helper()

	schema, err := plc.NewSchemaBuilder().
		Add(plc.FieldSpec{Name: "temperature", Type: plc.TypeReal, ByteOffset: 0}).
		Add(plc.FieldSpec{Name: "pressure", Type: plc.TypeWord, ByteOffset: 4}).
		Add(plc.FieldSpec{Name: "status", Type: plc.TypeBool, ByteOffset: 6, BitOffset: 0, Settable: true}).
		Build()
	require.NoError(t, err)

	tr := sim.NewTransport(map[int][]byte{
		1: {0x42, 0x49, 0x00, 0x00, 0x00, 0x64, 0x01},
	}, zap.NewNop())

	cfg := &config.PLCConfig{
		DBNumber:       1,
		LivenessWindow: 2 * time.Second,
	}
	conn := plc.NewConnection(schema, tr, cfg.DBNumber, zap.NewNop())
	return NewPLCService(conn, cfg, zap.NewNop()), tr
}

func TestServiceReadPublishesSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	events := svc.Bus().Subscribe()

	require.NoError(t, svc.Connect(ctx))

	// connect transition first
	ev := <-events
	assert.Equal(t, EventConnection, ev.Type)

	snapshot, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(50.25), snapshot["temperature"])
	assert.Equal(t, uint16(100), snapshot["pressure"])
	assert.Equal(t, true, snapshot["status"])

	ev = <-events
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, true, ev.Data["status"])
}

func TestServiceWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, tr := newTestService(t)
	require.NoError(t, svc.Connect(ctx))
	_, err := svc.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Set("status", false))
	require.NoError(t, svc.Write(ctx))

	block, err := tr.Peek(1)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), block[6])
	assert.Equal(t, []byte{0x42, 0x49, 0x00, 0x00, 0x00, 0x64}, block[:6], "sibling bytes unchanged")
	assert.Empty(t, svc.Status().DirtyFields)
}

func TestServiceWriteWithoutChangesPublishesNothing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.Connect(ctx))
	_, err := svc.Read(ctx)
	require.NoError(t, err)

	events := svc.Bus().Subscribe()
	require.NoError(t, svc.Write(ctx))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %q", ev.Type)
	default:
	}
}

func TestServiceSetManySkipsUnchangedValues(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.Connect(ctx))
	_, err := svc.Read(ctx)
	require.NoError(t, err)

	// status already true after the read
	changed, err := svc.SetMany(map[string]any{"status": true})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, svc.Status().DirtyFields)

	changed, err = svc.SetMany(map[string]any{"status": false})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"status"}, svc.Status().DirtyFields)
}

func TestServiceSetManyRejectsReadOnlyFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.Connect(ctx))
	_, err := svc.Read(ctx)
	require.NoError(t, err)

	_, err = svc.SetMany(map[string]any{"temperature": 99.5})
	assert.ErrorIs(t, err, plc.ErrImmutableField)

	_, err = svc.SetMany(map[string]any{"bogus": 1})
	assert.ErrorIs(t, err, plc.ErrUnknownField)
}

func TestServiceStatusLiveness(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	info := svc.Status()
	assert.Equal(t, plc.StateDisconnected, info.State)
	assert.False(t, info.Alive)
	assert.Nil(t, info.LastExchange)

	require.NoError(t, svc.Connect(ctx))
	info = svc.Status()
	assert.Equal(t, plc.StateConnected, info.State)
	assert.True(t, info.Alive)
	require.NotNil(t, info.LastExchange)
}

func TestServiceOperationsRequireConnection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Read(ctx)
	assert.ErrorIs(t, err, plc.ErrNotConnected)

	// local sets never need a session
	require.NoError(t, svc.Set("status", true))
	assert.ErrorIs(t, svc.Write(ctx), plc.ErrNotConnected)
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// publishing after unsubscribe reaches nobody and must not panic
	bus.Publish(Event{Type: EventSnapshot, Timestamp: time.Now()})
}
