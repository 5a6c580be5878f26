package notification

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPerKindLimit = 5
	DefaultFeedLimit    = 10
)

type OfferSource interface {
	ListMine(ctx context.Context, identity domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error)
	ListForSeller(ctx context.Context, identity domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error)
}

type ConversationSource interface {
	ListConversations(ctx context.Context, identity domain.Identity) ([]*domain.Conversation, error)
	UnreadCount(ctx context.Context, identity domain.Identity) (int64, error)
}

// Feed is one aggregation result. Errors names the inputs that failed for reasons other than auth.
type Feed struct {
	Items       []domain.Notification     `json:"items"`
	Counts      domain.NotificationCounts `json:"counts"`
	Errors      []string                  `json:"errors,omitempty"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

func EmptyFeed(now time.Time) Feed {
	return Feed{Items: []domain.Notification{}, GeneratedAt: now}
}

type Aggregator struct {
	offers        OfferSource
	conversations ConversationSource
	perKindLimit  int
	feedLimit     int
	now           func() time.Time
	log           zerolog.Logger
}

func NewAggregator(offers OfferSource, conversations ConversationSource, perKindLimit, feedLimit int, log zerolog.Logger) *Aggregator {
	if perKindLimit <= 0 {
		perKindLimit = DefaultPerKindLimit
	}
	if feedLimit <= 0 {
		feedLimit = DefaultFeedLimit
	}
	return &Aggregator{
		offers:        offers,
		conversations: conversations,
		perKindLimit:  perKindLimit,
		feedLimit:     feedLimit,
		now:           time.Now,
		log:           log.With().Str("component", "notification").Logger(),
	}
}

// Aggregate fetches the three inputs concurrently and builds the feed from whatever succeeded.
func (a *Aggregator) Aggregate(ctx context.Context, identity domain.Identity) Feed {
	feed := EmptyFeed(a.now())
	if !identity.IsAuthenticated() {
		return feed
	}

	var (
		offers        []*domain.Offer
		conversations []*domain.Conversation
		unread        int64
		offersErr     error
		convErr       error
		unreadErr     error
	)

	// each input fails on its own, so no goroutine returns an error to the group
	var g errgroup.Group
	g.Go(func() error {
		active := domain.ActiveOfferStatuses()
		if identity.IsAdmin() {
			offers, offersErr = a.offers.ListForSeller(ctx, identity, active...)
		} else {
			offers, offersErr = a.offers.ListMine(ctx, identity, active...)
		}
		return nil
	})
	g.Go(func() error {
		conversations, convErr = a.conversations.ListConversations(ctx, identity)
		return nil
	})
	g.Go(func() error {
		unread, unreadErr = a.conversations.UnreadCount(ctx, identity)
		return nil
	})
	_ = g.Wait()

	if !a.usable("offers", offersErr, &feed) {
		offers = nil
	}
	if !a.usable("conversations", convErr, &feed) {
		conversations = nil
	}
	if !a.usable("unread_count", unreadErr, &feed) {
		unread = 0
	}

	return build(feed, offers, conversations, unread, a.perKindLimit, a.feedLimit)
}

func (a *Aggregator) usable(input string, err error, feed *Feed) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		a.log.Debug().Err(err).Str("input", input).Msg("notification input unauthorized, treating as empty")
		return false
	}
	a.log.Warn().Err(err).Str("input", input).Msg("notification input failed")
	feed.Errors = append(feed.Errors, input)
	return false
}

func build(feed Feed, offers []*domain.Offer, conversations []*domain.Conversation, unread int64, perKind, limit int) Feed {
	seen := make(map[string]int)
	// add keeps one entry per record, the most recently updated one
	add := func(items []domain.Notification, n domain.Notification) []domain.Notification {
		if i, ok := seen[n.Key()]; ok {
			if n.SortTime().After(items[i].SortTime()) {
				items[i] = n
			}
			return items
		}
		seen[n.Key()] = len(items)
		return append(items, n)
	}

	var offerItems []domain.Notification
	for _, o := range offers {
		if o.Status.IsActive() {
			offerItems = add(offerItems, domain.OfferNotification(o))
		}
	}
	feed.Counts.Offers = len(offerItems)

	var messageItems []domain.Notification
	for _, c := range conversations {
		if c.UnreadCount > 0 {
			messageItems = add(messageItems, domain.MessageNotification(c))
		}
	}

	items := append(newest(offerItems, perKind), newest(messageItems, perKind)...)
	items = newest(items, limit)
	if items == nil {
		items = []domain.Notification{}
	}
	feed.Items = items

	feed.Counts.Messages = unread
	feed.Counts.Total = int64(feed.Counts.Offers) + unread
	return feed
}

// newest sorts by timestamp descending, ties broken by key, and keeps at most n.
func newest(items []domain.Notification, n int) []domain.Notification {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].SortTime(), items[j].SortTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].Key() < items[j].Key()
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}
