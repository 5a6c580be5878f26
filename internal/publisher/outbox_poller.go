package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	r "github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "offer-events"

// Store is what the poller needs from the repository.
type Store interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	ExpireReservations(ctx context.Context, now time.Time) ([]domain.ReservedCartEntry, error)
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	batch        int
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         Store
	writer       MessageWriter
	now          func() time.Time
	log          zerolog.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// NewOutboxPoller publishes outbox rows every eventTick and sweeps lapsed reservations every
// recoveryTick. The sweep writes its own outbox rows, which the next publish picks up.
func NewOutboxPoller(repo Store, writer MessageWriter, eventTick, recoveryTick time.Duration, log zerolog.Logger) *OutboxPoller {
	if eventTick <= 0 {
		eventTick = time.Second
	}
	if recoveryTick <= 0 {
		recoveryTick = time.Minute
	}
	return &OutboxPoller{
		batch:        100,
		eventTick:    eventTick,
		recoveryTick: recoveryTick,
		repo:         repo,
		writer:       writer,
		now:          time.Now,
		log:          log.With().Str("component", "outbox").Logger(),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.expireReservations(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batch)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to publish event")
			// later events for the same offer must not overtake this one
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark event as processed")
			continue
		}
	}
}

func (p *OutboxPoller) expireReservations(ctx context.Context) {
	expired, err := p.repo.ExpireReservations(ctx, p.now())
	if err != nil {
		p.log.Error().Err(err).Msg("failed to expire reservations")
		return
	}
	for _, e := range expired {
		p.log.Info().
			Str("listing_id", e.ListingID).
			Str("offer_id", e.OfferID).
			Str("buyer_id", e.BuyerID).
			Msg("reservation expired")
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateId),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
