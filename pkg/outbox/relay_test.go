package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/pkg/logging"
)

type memStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]string
}

func (s *memStore) LockBatch(_ context.Context, relayID string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.pending))
	batch := append([]Event(nil), s.pending[:n]...)
	s.pending = s.pending[n:]
	for i := range batch {
		batch[i].RelayID = relayID
		batch[i].Status = StatusInProgress
	}
	return batch, nil
}

func (s *memStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id int64, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = msg
	return nil
}

func (s *memStore) ExtendLease(context.Context, string, []int64, time.Duration) error { return nil }

type recordingProducer struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	failOn string
}

func (p *recordingProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
		p.msgs = append(p.msgs, m)
	}
	return nil
}

func TestRelayTick(t *testing.T) {
	store := &memStore{
		failed: map[int64]string{},
		pending: []Event{
			{ID: 1, Collection: "orders", Path: "orders/a", Op: "set", Payload: []byte(`{}`), Headers: map[string]string{"source": "storefront"}, Traceparent: "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"},
			{ID: 2, Collection: "orders", Path: "orders/b", Op: "remove", Payload: []byte(`{}`)},
			{ID: 3, Collection: "users", Path: "users/u1", Op: "update", Payload: []byte(`{}`)},
		},
	}
	producer := &recordingProducer{failOn: "orders/b"}
	relay := NewRelay(logging.Discard(), store, NewDispatcher(logging.Discard(), producer, "storefront.changes"), "test-relay")

	relay.tick(context.Background())

	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Contains(t, store.failed, int64(2))

	require.Len(t, producer.msgs, 2)
	first := producer.msgs[0]
	assert.Equal(t, "storefront.changes", first.Topic)
	assert.Equal(t, "orders/a", string(first.Key))
	headers := map[string]string{}
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "set", headers[HeaderOp])
	assert.Equal(t, "storefront", headers["source"])
	assert.Contains(t, headers["traceparent"], "0af7651916cd43dd8448eb211c80319c")
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	store := &memStore{failed: map[int64]string{}, pending: []Event{{ID: 9, Path: "orders/z"}}}
	producer := &recordingProducer{}
	relay := NewRelay(logging.Discard(), store, NewDispatcher(logging.Discard(), producer, "t"), "r", WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
