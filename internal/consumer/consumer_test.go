package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/reservation"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

func setupTestCache(t *testing.T) *reservation.Cache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return reservation.NewCache(client, time.Minute)
}

func seedCache(t *testing.T, cache *reservation.Cache, buyerID string) {
	ctx := context.Background()
	gen, err := cache.Generation(ctx, buyerID)
	require.NoError(t, err)
	written, err := cache.Set(ctx, buyerID, gen, []domain.ReservedCartEntry{{ListingID: "lst-1001", OfferID: "off-1", Price: 650}})
	require.NoError(t, err)
	require.True(t, written)
}

func message(eventType string, payload any) kafkaGo.Message {
	data, _ := json.Marshal(payload)
	return kafkaGo.Message{
		Key:     []byte("off-1"),
		Value:   data,
		Headers: []kafkaGo.Header{{Key: "event_type", Value: []byte(eventType)}},
	}
}

type recordingInvalidator struct {
	mu     sync.Mutex
	buyers []string
	err    error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, buyerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buyers = append(r.buyers, buyerID)
	return r.err
}

func TestHandle_InvalidatesOnReservationEvents(t *testing.T) {
	cache := setupTestCache(t)
	c := NewConsumer(nil, cache, zerolog.Nop())
	ctx := context.Background()

	for _, eventType := range []string{domain.EventOfferAccepted, domain.EventOfferRejected, domain.EventReservationExpired} {
		seedCache(t, cache, "buyer-1")

		err := c.handle(ctx, message(eventType, domain.OfferEvent{OfferID: "off-1", BuyerID: "buyer-1"}))
		assert.NilError(t, err)

		_, err = cache.Get(ctx, "buyer-1")
		assert.Assert(t, errors.Is(err, reservation.ErrCacheMiss), eventType)
	}
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	inv := &recordingInvalidator{}
	c := NewConsumer(nil, inv, zerolog.Nop())

	for _, eventType := range []string{domain.EventOfferSubmitted, domain.EventOfferCountered, ""} {
		err := c.handle(context.Background(), message(eventType, domain.OfferEvent{BuyerID: "buyer-1"}))
		assert.NilError(t, err)
	}
	assert.Equal(t, len(inv.buyers), 0)
}

func TestHandle_BadPayload(t *testing.T) {
	inv := &recordingInvalidator{}
	c := NewConsumer(nil, inv, zerolog.Nop())
	ctx := context.Background()

	m := message(domain.EventOfferAccepted, nil)
	m.Value = []byte(`{corrupted`)
	assert.ErrorContains(t, c.handle(ctx, m), "error parsing message")

	err := c.handle(ctx, message(domain.EventOfferAccepted, map[string]string{"offer_id": "off-1"}))
	assert.ErrorContains(t, err, "buyer_id")
	assert.Equal(t, len(inv.buyers), 0)
}

func TestHandle_InvalidatorError(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	c := NewConsumer(nil, inv, zerolog.Nop())

	err := c.handle(context.Background(), message(domain.EventReservationExpired, domain.ReservationEvent{BuyerID: "buyer-2"}))
	assert.ErrorContains(t, err, "redis down")
	assert.DeepEqual(t, inv.buyers, []string{"buyer-2"})
}

type scriptedReader struct {
	msgs chan kafkaGo.Message
}

func (s *scriptedReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	select {
	case m := <-s.msgs:
		return m, nil
	case <-ctx.Done():
		return kafkaGo.Message{}, ctx.Err()
	}
}

func (s *scriptedReader) Close() error { return nil }

func TestRun_StopsOnCancel(t *testing.T) {
	reader := &scriptedReader{msgs: make(chan kafkaGo.Message, 1)}
	inv := &recordingInvalidator{}
	c := NewConsumer(reader, inv, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	reader.msgs <- message(domain.EventOfferAccepted, domain.OfferEvent{BuyerID: "buyer-3"})
	require.Eventually(t, func() bool {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		return len(inv.buyers) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

type failingReader struct {
	err   error
	calls atomic.Int32
}

func (f *failingReader) ReadMessage(context.Context) (kafkaGo.Message, error) {
	f.calls.Add(1)
	return kafkaGo.Message{}, f.err
}

func (f *failingReader) Close() error { return nil }

func TestRun_StopsWhenReaderClosed(t *testing.T) {
	reader := &failingReader{err: io.EOF}
	c := NewConsumer(reader, &recordingInvalidator{}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer kept reading a closed reader")
	}
	assert.Equal(t, reader.calls.Load(), int32(1))
}

func TestRun_BacksOffOnReadErrors(t *testing.T) {
	reader := &failingReader{err: errors.New("broker unavailable")}
	c := NewConsumer(reader, &recordingInvalidator{}, zerolog.Nop())
	c.retryDelay = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	calls := reader.calls.Load()
	assert.Assert(t, calls >= 2, "calls=%d", calls)
	assert.Assert(t, calls <= 10, "calls=%d", calls)
}

func setupKafka(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestConsumer_Kafka(t *testing.T) {
	brokers := setupKafka(t)
	topic := "offer-events"
	createTopic(t, brokers, topic)

	cache := setupTestCache(t)
	seedCache(t, cache, "buyer-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers),
		Topic:                  topic,
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
	}
	err := w.WriteMessages(ctx, message(domain.EventOfferAccepted, domain.OfferEvent{OfferID: "off-1", BuyerID: "buyer-1"}))
	require.NoError(t, err)
	w.Close()

	c := NewConsumer(NewKafkaReader(topic, "test-group", brokers), cache, zerolog.Nop())
	defer c.Close()
	go c.Run(ctx)

	require.Eventually(t, func() bool {
		_, err := cache.Get(ctx, "buyer-1")
		return errors.Is(err, reservation.ErrCacheMiss)
	}, 15*time.Second, 500*time.Millisecond)
}
