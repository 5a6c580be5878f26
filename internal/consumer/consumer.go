package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultGroupID = "storefront-reservation-cache"
	readRetryDelay = time.Second
)

type Invalidator interface {
	Invalidate(ctx context.Context, buyerID string) error
}

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer drops a buyer's cached reservations whenever an event may have changed them.
// Events from other writers of the topic keep the cache honest across instances.
type Consumer struct {
	reader     MessageReader
	cache      Invalidator
	retryDelay time.Duration
	log        zerolog.Logger
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	if groupID == "" {
		groupID = DefaultGroupID
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewConsumer(reader MessageReader, cache Invalidator, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		cache:      cache,
		retryDelay: readRetryDelay,
		log:        log.With().Str("component", "consumer").Logger(),
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			// kafka-go returns io.EOF once the reader is closed
			if errors.Is(err, io.EOF) {
				c.log.Info().Msg("reader closed, consumer stopped")
				return
			}
			if !errors.Is(err, context.Canceled) {
				c.log.Error().Err(err).Msg("error reading message")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if err := c.handle(ctx, m); err != nil {
			c.log.Warn().Err(err).Int64("offset", m.Offset).Msg("failed to handle message")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	eventType := header(m, "event_type")
	if !affectsReservations(eventType) {
		return nil
	}

	var payload struct {
		BuyerID string `json:"buyer_id"`
	}
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if payload.BuyerID == "" {
		return errors.New("missing or invalid buyer_id")
	}

	if err := c.cache.Invalidate(ctx, payload.BuyerID); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	c.log.Debug().Str("event_type", eventType).Str("buyer_id", payload.BuyerID).Msg("reservation cache invalidated")
	return nil
}

func affectsReservations(eventType string) bool {
	switch eventType {
	case domain.EventOfferAccepted, domain.EventOfferRejected, domain.EventReservationExpired:
		return true
	}
	return false
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
