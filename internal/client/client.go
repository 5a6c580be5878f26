package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/httpapi"
	"github.com/fjod/go_cart/storefront/internal/notification"
	"github.com/fjod/go_cart/storefront/internal/offer"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotFound = errors.New("not found")

const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response. It matches the sentinel its code maps to.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	if e.Status == http.StatusUnauthorized {
		return target == domain.ErrUnauthorized
	}
	switch e.Code {
	case "not_found":
		return target == ErrNotFound
	case "invalid_amount":
		return target == offer.ErrInvalidAmount
	case "permission_denied":
		return target == offer.ErrForbidden
	case "own_listing":
		return target == offer.ErrOwnListing
	case "active_offer_exists":
		return target == offer.ErrActiveOfferExists
	case "listing_reserved":
		return target == offer.ErrListingReserved
	case "offer_busy":
		return target == offer.ErrOfferBusy
	case "illegal_transition":
		return target == offer.ErrIllegalTransition
	case "listing_unavailable":
		return target == offer.ErrListingUnavailable
	case "rate_limit_exceeded":
		return target == offer.ErrRateLimited
	case "item_locked":
		return target == cart.ErrItemLocked
	}
	return false
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	MaxAmount float64
	// CartSession is sent as the local cart namespace header.
	CartSession string
}

// Client talks to a remote storefront on behalf of one caller. It is a reservation source and
// a notification input, so the local resolver and aggregator can run against it.
type Client struct {
	baseURL   string
	session   string
	maxAmount float64
	http      *http.Client
	inflight  *offer.InFlight
	now       func() time.Time
	log       zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		session:   opts.CartSession,
		maxAmount: opts.MaxAmount,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		inflight: offer.NewInFlight(),
		now:      time.Now,
		log:      log.With().Str("component", "storefront_client").Logger(),
	}
}

func (c *Client) Reserved(ctx context.Context, identity domain.Identity) ([]domain.ReservedCartEntry, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	var entries []domain.ReservedCartEntry
	if err := c.do(ctx, identity, http.MethodGet, "/api/v1/cart/reserved", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Cart(ctx context.Context, identity domain.Identity) (cart.View, error) {
	var view cart.View
	err := c.do(ctx, identity, http.MethodGet, "/api/v1/cart/", nil, &view)
	return view, err
}

func (c *Client) AddToCart(ctx context.Context, identity domain.Identity, listingID string) error {
	return c.do(ctx, identity, http.MethodPost, "/api/v1/cart/items", httpapi.AddCartItemRequestDTO{ListingID: listingID}, nil)
}

func (c *Client) ListMine(ctx context.Context, identity domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error) {
	var offers []*domain.Offer
	err := c.do(ctx, identity, http.MethodGet, "/api/v1/offers"+statusQuery(statuses), nil, &offers)
	return offers, err
}

func (c *Client) ListForSeller(ctx context.Context, identity domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error) {
	if !identity.IsAdmin() {
		return nil, nil
	}
	var offers []*domain.Offer
	err := c.do(ctx, identity, http.MethodGet, "/api/v1/admin/offers"+statusQuery(statuses), nil, &offers)
	return offers, err
}

func (c *Client) ListConversations(ctx context.Context, identity domain.Identity) ([]*domain.Conversation, error) {
	var conversations []*domain.Conversation
	err := c.do(ctx, identity, http.MethodGet, "/api/v1/conversations/", nil, &conversations)
	return conversations, err
}

func (c *Client) UnreadCount(ctx context.Context, identity domain.Identity) (int64, error) {
	var resp httpapi.UnreadCountDTO
	if err := c.do(ctx, identity, http.MethodGet, "/api/v1/messages/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// Aggregate reads the server-built feed. Failures produce an empty feed naming the input.
func (c *Client) Aggregate(ctx context.Context, identity domain.Identity) notification.Feed {
	var feed notification.Feed
	err := c.do(ctx, identity, http.MethodGet, "/api/v1/notifications", nil, &feed)
	switch {
	case err == nil:
		return feed
	case errors.Is(err, domain.ErrUnauthorized):
		c.log.Debug().Err(err).Msg("feed request unauthorized, showing empty feed")
		return notification.EmptyFeed(c.now())
	default:
		c.log.Warn().Err(err).Msg("failed to fetch notifications")
		empty := notification.EmptyFeed(c.now())
		empty.Errors = []string{"notifications"}
		return empty
	}
}

// SubmitOffer validates the amount before any request is made.
func (c *Client) SubmitOffer(ctx context.Context, identity domain.Identity, listingID string, amount float64) (*domain.Offer, error) {
	if err := offer.ValidateAmount(amount, c.maxAmount); err != nil {
		return nil, err
	}
	release, ok := c.inflight.TryAcquire("submit:" + listingID)
	if !ok {
		return nil, offer.ErrOfferBusy
	}
	defer release()

	var o domain.Offer
	err := c.do(ctx, identity, http.MethodPost, "/api/v1/offers", httpapi.SubmitOfferRequestDTO{ListingID: listingID, Amount: amount}, &o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) CounterOffer(ctx context.Context, identity domain.Identity, offerID string, amount float64) (*domain.Offer, error) {
	if err := offer.ValidateAmount(amount, c.maxAmount); err != nil {
		return nil, err
	}
	return c.transition(ctx, identity, offerID, "counter", httpapi.CounterOfferRequestDTO{Amount: amount})
}

func (c *Client) AcceptOffer(ctx context.Context, identity domain.Identity, offerID string) (*domain.Offer, error) {
	return c.transition(ctx, identity, offerID, "accept", nil)
}

func (c *Client) RejectOffer(ctx context.Context, identity domain.Identity, offerID string) (*domain.Offer, error) {
	return c.transition(ctx, identity, offerID, "reject", nil)
}

// transition refuses a second action on the same offer while one is outstanding.
func (c *Client) transition(ctx context.Context, identity domain.Identity, offerID, action string, body interface{}) (*domain.Offer, error) {
	release, ok := c.inflight.TryAcquire(offerID)
	if !ok {
		return nil, offer.ErrOfferBusy
	}
	defer release()

	var o domain.Offer
	if err := c.do(ctx, identity, http.MethodPost, "/api/v1/offers/"+url.PathEscape(offerID)+"/"+action, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, identity domain.Identity, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity.Token != "" {
		req.Header.Set("Authorization", "Bearer "+identity.Token)
	}
	if c.session != "" {
		req.Header.Set(httpapi.CartSessionHeader, c.session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e httpapi.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func statusQuery(statuses []domain.OfferStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return "?status=" + url.QueryEscape(strings.Join(parts, ","))
}
