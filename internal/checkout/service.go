package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/rs/zerolog"
)

// CartSource yields the reconciled cart for an identity and local cart namespace.
type CartSource interface {
	Items(ctx context.Context, identity domain.Identity, ns string) ([]domain.CartItem, error)
}

type ReservationCompleter interface {
	CompleteReservations(ctx context.Context, buyerID string, listingIDs []string, now time.Time) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, buyerID string) error
}

type Options struct {
	SuccessURL  string
	CancelURL   string
	Invalidator Invalidator
}

// Quote is a validated checkout: the assembled request and the price both payment paths present.
type Quote struct {
	Request domain.CheckoutRequest
	Summary domain.CheckoutSummary
}

type SessionResult struct {
	SessionID      string  `json:"session_id"`
	RedirectURL    string  `json:"redirect_url"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
	FormattedTotal string  `json:"formatted_total"`
}

type OrderResult struct {
	OrderID        string  `json:"order_id"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
	FormattedTotal string  `json:"formatted_total"`
}

type CaptureResult struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type Service struct {
	cart         CartSource
	redirect     payment.RedirectProvider
	orders       payment.OrderProvider
	pending      PendingOrders
	reservations ReservationCompleter
	opts         Options
	now          func() time.Time
	log          zerolog.Logger
}

func NewService(
	cart CartSource,
	redirect payment.RedirectProvider,
	orders payment.OrderProvider,
	pending PendingOrders,
	reservations ReservationCompleter,
	opts Options,
	log zerolog.Logger,
) *Service {
	return &Service{
		cart:         cart,
		redirect:     redirect,
		orders:       orders,
		pending:      pending,
		reservations: reservations,
		opts:         opts,
		now:          time.Now,
		log:          log.With().Str("component", "checkout").Logger(),
	}
}

// Prepare recomputes the cart server-side and checks it against what the buyer submitted.
// Anonymous callers are refused before the cart or its reservations are read.
func (s *Service) Prepare(ctx context.Context, identity domain.Identity, ns string, req domain.CheckoutRequest) (*Quote, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	if err := validateAddress(req.ShippingAddress); err != nil {
		return nil, err
	}

	items, err := s.cart.Items(ctx, identity, ns)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	assembled, err := Assemble(items, req.ShippingAddress)
	if err != nil {
		return nil, err
	}
	if !matches(req.Items, assembled.Items) {
		return nil, ErrCartMismatch
	}

	return &Quote{Request: assembled, Summary: Summarize(items, s.now().UTC())}, nil
}

func (s *Service) CreateRedirectSession(ctx context.Context, identity domain.Identity, ns string, req domain.CheckoutRequest) (*SessionResult, error) {
	quote, err := s.Prepare(ctx, identity, ns, req)
	if err != nil {
		return nil, err
	}

	session, err := s.redirect.CreateSession(ctx, payment.SessionRequest{
		Charge:     charge(identity, quote),
		SuccessURL: s.opts.SuccessURL,
		CancelURL:  s.opts.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("buyer_id", identity.UserID).
		Str("session_id", session.ID).
		Float64("total", quote.Summary.TotalAmount).
		Msg("checkout session created")

	return &SessionResult{
		SessionID:      session.ID,
		RedirectURL:    session.RedirectURL,
		Total:          quote.Summary.TotalAmount,
		Currency:       quote.Summary.Currency,
		FormattedTotal: domain.FormatPrice(quote.Summary.TotalAmount, quote.Summary.Currency),
	}, nil
}

func (s *Service) CreateProviderOrder(ctx context.Context, identity domain.Identity, ns string, req domain.CheckoutRequest) (*OrderResult, error) {
	quote, err := s.Prepare(ctx, identity, ns, req)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, charge(identity, quote))
	if err != nil {
		return nil, err
	}

	listingIDs := make([]string, 0, len(quote.Request.Items))
	for _, line := range quote.Request.Items {
		listingIDs = append(listingIDs, line.ListingID)
	}
	err = s.pending.Save(ctx, PendingOrder{
		OrderID:    order.ID,
		BuyerID:    identity.UserID,
		ListingIDs: listingIDs,
		Total:      quote.Summary.TotalAmount,
		Currency:   quote.Summary.Currency,
		CreatedAt:  quote.Summary.CapturedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save pending order: %w", err)
	}

	s.log.Info().
		Str("buyer_id", identity.UserID).
		Str("order_id", order.ID).
		Float64("total", quote.Summary.TotalAmount).
		Msg("provider order created")

	return &OrderResult{
		OrderID:        order.ID,
		Total:          quote.Summary.TotalAmount,
		Currency:       quote.Summary.Currency,
		FormattedTotal: domain.FormatPrice(quote.Summary.TotalAmount, quote.Summary.Currency),
	}, nil
}

// CaptureProviderOrder settles an order created by CreateProviderOrder. A completed capture
// turns the buyer's reservations on the purchased listings into completed ones.
func (s *Service) CaptureProviderOrder(ctx context.Context, identity domain.Identity, orderID string) (*CaptureResult, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}

	pending, err := s.pending.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pending.BuyerID != identity.UserID {
		return nil, ErrOrderNotFound
	}

	capture, err := s.orders.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	result := &CaptureResult{
		OrderID:       orderID,
		Status:        capture.Status,
		TransactionID: capture.TransactionID,
		Reason:        capture.Reason,
	}
	if capture.Status != payment.CaptureStatusCompleted {
		s.log.Info().Str("order_id", orderID).Str("reason", capture.Reason).Msg("provider order declined")
		return result, nil
	}

	if err := s.reservations.CompleteReservations(ctx, pending.BuyerID, pending.ListingIDs, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to complete reservations: %w", err)
	}
	if err := s.pending.Delete(ctx, orderID); err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID).Msg("failed to drop pending order")
	}
	if s.opts.Invalidator != nil {
		if err := s.opts.Invalidator.Invalidate(ctx, pending.BuyerID); err != nil {
			s.log.Warn().Err(err).Str("buyer_id", pending.BuyerID).Msg("failed to invalidate reservation cache")
		}
	}

	s.log.Info().
		Str("order_id", orderID).
		Str("transaction_id", capture.TransactionID).
		Msg("provider order captured")
	return result, nil
}

func charge(identity domain.Identity, quote *Quote) payment.Charge {
	lines := make([]payment.Line, 0, len(quote.Summary.Items))
	for _, item := range quote.Summary.Items {
		lines = append(lines, payment.Line{
			ListingID:  item.ListingID,
			Title:      item.Title,
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	a := quote.Request.ShippingAddress
	return payment.Charge{
		CustomerID: identity.UserID,
		Lines:      lines,
		Total:      quote.Summary.TotalAmount,
		Currency:   quote.Summary.Currency,
		Shipping: payment.Address{
			FullName:   a.FullName,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		},
	}
}
