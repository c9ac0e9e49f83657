package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]string
}

func (m *memStore) LockBatch(_ context.Context, relayID string, batchSize int, _ time.Duration) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(batchSize, len(m.pending))
	batch := make([]Event, n)
	copy(batch, m.pending[:n])
	m.pending = m.pending[n:]
	for i := range batch {
		batch[i].Status = StatusInProgress
		batch[i].RelayID = relayID
	}
	return batch, nil
}

func (m *memStore) MarkSent(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, ids...)
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed == nil {
		m.failed = map[int64]string{}
	}
	m.failed[id] = errMsg
	return nil
}

func (m *memStore) ExtendLease(context.Context, string, []int64, time.Duration) error {
	return nil
}

func (m *memStore) drained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) == 0
}

type memProducer struct {
	mu       sync.Mutex
	messages []kafka.Message
	failKeys map[string]error
}

func (p *memProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range msgs {
		if err := p.failKeys[string(msg.Key)]; err != nil {
			return err
		}
		p.messages = append(p.messages, msg)
	}
	return nil
}

func (p *memProducer) written() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.messages...)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDispatch(t *testing.T) {
	producer := &memProducer{}
	d := NewDispatcher(slog.New(slog.DiscardHandler), producer, "order.events")

	err := d.Dispatch(context.Background(), Event{
		ID:          1,
		AggregateID: "order-1",
		Type:        "order.created",
		Payload:     []byte(`{"orderCode":"ORDER-abc"}`),
		Headers:     map[string]string{"source": "commerce-server"},
		Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)

	msgs := producer.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "order.events", msgs[0].Topic)
	assert.Equal(t, []byte("order-1"), msgs[0].Key)
	assert.Equal(t, "order.created", header(msgs[0], "event_type"))
	assert.Equal(t, "commerce-server", header(msgs[0], "source"))
	assert.Equal(t, "00-abc-def-01", header(msgs[0], "traceparent"))
}

func TestDispatchOmitsEmptyTraceparent(t *testing.T) {
	producer := &memProducer{}
	d := NewDispatcher(slog.New(slog.DiscardHandler), producer, "order.events")

	require.NoError(t, d.Dispatch(context.Background(), Event{ID: 1, AggregateID: "order-1", Type: "order.created"}))
	msgs := producer.written()
	require.Len(t, msgs, 1)
	for _, h := range msgs[0].Headers {
		assert.NotEqual(t, "traceparent", h.Key)
	}
}

func TestRelayDrainsPendingEvents(t *testing.T) {
	store := &memStore{pending: []Event{
		{ID: 1, AggregateID: "order-1", Type: "order.created", Status: StatusPending},
		{ID: 2, AggregateID: "order-2", Type: "order.created", Status: StatusPending},
		{ID: 3, AggregateID: "order-1", Type: "order.status_changed", Status: StatusPending},
	}}
	producer := &memProducer{}
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "relay-test")
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		return store.drained() && len(producer.written()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []int64{1, 2, 3}, store.sent)
	assert.Empty(t, store.failed)
}

func TestRelayMarksFailedAndKeepsGoing(t *testing.T) {
	store := &memStore{pending: []Event{
		{ID: 1, AggregateID: "order-bad", Type: "order.created", Status: StatusPending},
		{ID: 2, AggregateID: "order-ok", Type: "order.created", Status: StatusPending},
	}}
	broken := errors.New("broker unreachable")
	producer := &memProducer{failKeys: map[string]error{"order-bad": broken}}
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "relay-test")
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1 && len(store.failed) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{2}, store.sent)
	assert.Equal(t, broken.Error(), store.failed[1])
}
