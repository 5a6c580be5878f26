package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	msgSubmitted = "Offer submitted"
	msgAccepted  = "Offer accepted"
	msgRejected  = "Offer rejected"
)

// Invalidator drops whatever is cached about a buyer's reservations.
type Invalidator interface {
	Invalidate(ctx context.Context, buyerID string) error
}

type Options struct {
	MaxAmount       float64
	ReservationTTL  time.Duration
	SubmitPerMinute int
	SubmitBurst     int
	Invalidator     Invalidator
}

type Service struct {
	listings    repository.ListingRepository
	offers      repository.OfferRepository
	invalidator Invalidator
	inflight    *InFlight
	limiter     *submitLimiter
	maxAmount   float64
	ttl         time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewService(listings repository.ListingRepository, offers repository.OfferRepository, opts Options, log zerolog.Logger) *Service {
	if opts.MaxAmount <= 0 {
		opts.MaxAmount = domain.MaxOfferAmount
	}
	if opts.ReservationTTL <= 0 {
		opts.ReservationTTL = 48 * time.Hour
	}
	return &Service{
		listings:    listings,
		offers:      offers,
		invalidator: opts.Invalidator,
		inflight:    NewInFlight(),
		limiter:     newSubmitLimiter(opts.SubmitPerMinute, opts.SubmitBurst),
		maxAmount:   opts.MaxAmount,
		ttl:         opts.ReservationTTL,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("component", "offer").Logger(),
	}
}

func (s *Service) Submit(ctx context.Context, actor domain.Identity, listingID string, amount float64) (*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	if err := ValidateAmount(amount, s.maxAmount); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(actor.UserID) {
		return nil, ErrRateLimited
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Disabled {
		return nil, ErrListingUnavailable
	}
	if listing.SellerID == actor.UserID {
		return nil, ErrOwnListing
	}

	_, err = s.offers.FindActiveOffer(ctx, listingID, actor.UserID)
	if err == nil {
		return nil, ErrActiveOfferExists
	}
	if !errors.Is(err, ErrOfferNotFound) {
		return nil, fmt.Errorf("failed to check active offers: %w", err)
	}

	now := s.now()
	amount = domain.RoundCents(amount)
	currency := listing.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	o := &domain.Offer{
		ID:                 uuid.NewString(),
		ListingID:          listing.ID,
		BuyerID:            actor.UserID,
		SellerID:           listing.SellerID,
		InitialOfferAmount: amount,
		CurrentOfferAmount: amount,
		Currency:           currency,
		Status:             domain.OfferStatusPending,
		Messages: []domain.OfferMessage{
			systemMessage(actor.UserID, msgSubmitted, now),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.offers.CreateOffer(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("offer_id", o.ID).
		Str("listing_id", o.ListingID).
		Str("buyer_id", o.BuyerID).
		Float64("amount", amount).
		Msg("offer submitted")
	return o, nil
}

// Counter is seller-only. A countered offer may be countered again.
func (s *Service) Counter(ctx context.Context, actor domain.Identity, offerID string, amount float64) (*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := ValidateAmount(amount, s.maxAmount); err != nil {
		return nil, err
	}

	return s.transition(ctx, offerID, func(o *domain.Offer, now time.Time) (repository.OfferTransition, error) {
		if !domain.CanTransitionTo(o.Status, domain.OfferStatusCountered) {
			return repository.OfferTransition{}, ErrIllegalTransition
		}
		counter := domain.RoundCents(amount)
		o.Status = domain.OfferStatusCountered
		o.CounterOfferAmount = &counter
		return repository.OfferTransition{
			Message: systemMessage(actor.UserID, "Counter offer: "+domain.FormatPrice(counter, o.Currency), now),
		}, nil
	})
}

// Accept is open to the seller on any active offer and to the buyer on a countered one.
// A buyer accepting fixes the current amount at the counter.
func (s *Service) Accept(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}

	o, err := s.transition(ctx, offerID, func(o *domain.Offer, now time.Time) (repository.OfferTransition, error) {
		if !actor.IsAdmin() && o.BuyerID != actor.UserID {
			return repository.OfferTransition{}, ErrOfferNotFound
		}
		if !domain.CanTransitionTo(o.Status, domain.OfferStatusAccepted) {
			return repository.OfferTransition{}, ErrIllegalTransition
		}
		if !actor.IsAdmin() {
			if o.Status != domain.OfferStatusCountered || o.CounterOfferAmount == nil {
				return repository.OfferTransition{}, ErrIllegalTransition
			}
			o.CurrentOfferAmount = *o.CounterOfferAmount
		}
		o.Status = domain.OfferStatusAccepted

		listing, err := s.listings.GetListing(ctx, o.ListingID)
		if err != nil {
			return repository.OfferTransition{}, err
		}
		return repository.OfferTransition{
			Message: systemMessage(actor.UserID, msgAccepted, now),
			Reservation: &domain.ReservedCartEntry{
				ListingID: o.ListingID,
				OfferID:   o.ID,
				BuyerID:   o.BuyerID,
				Title:     listing.Title,
				Image:     listing.Image,
				Price:     o.CurrentOfferAmount,
				Currency:  o.Currency,
				IsLocked:  true,
				CreatedAt: now,
				ExpiresAt: now.Add(s.ttl),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(o.BuyerID)
	return o, nil
}

// Reject is open to the seller and to the offer's buyer while the offer is active.
// Other buyers get ErrOfferNotFound, as from Get.
func (s *Service) Reject(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}

	o, err := s.transition(ctx, offerID, func(o *domain.Offer, now time.Time) (repository.OfferTransition, error) {
		if !actor.IsAdmin() && o.BuyerID != actor.UserID {
			return repository.OfferTransition{}, ErrOfferNotFound
		}
		if !domain.CanTransitionTo(o.Status, domain.OfferStatusRejected) {
			return repository.OfferTransition{}, ErrIllegalTransition
		}
		o.Status = domain.OfferStatusRejected
		return repository.OfferTransition{
			Message:            systemMessage(actor.UserID, msgRejected, now),
			ReleaseReservation: true,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(o.BuyerID)
	return o, nil
}

// ListMine returns the actor's offers, newest activity first.
func (s *Service) ListMine(ctx context.Context, actor domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	return s.offers.ListOffers(ctx, repository.OfferFilter{BuyerID: actor.UserID, Statuses: statuses})
}

// ListForSeller is the admin inbox across all listings.
func (s *Service) ListForSeller(ctx context.Context, actor domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.offers.ListOffers(ctx, repository.OfferFilter{Statuses: statuses})
}

// Get returns the offer if the actor may see it. Other buyers' offers read as not found.
func (s *Service) Get(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	o, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.BuyerID != actor.UserID {
		return nil, ErrOfferNotFound
	}
	return o, nil
}

// Detail is Get plus the stale-reservation warning for the viewer.
func (s *Service) Detail(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, Warning, error) {
	o, err := s.Get(ctx, actor, offerID)
	if err != nil {
		return nil, WarningNone, err
	}
	if o.Status != domain.OfferStatusAccepted {
		return o, WarningNone, nil
	}
	listing, err := s.listings.GetListing(ctx, o.ListingID)
	if err != nil {
		// the warning is cosmetic
		s.log.Warn().Err(err).Str("offer_id", o.ID).Msg("failed to load listing for offer detail")
		return o, WarningNone, nil
	}
	return o, StaleReservationWarning(o, listing, actor.UserID), nil
}

// transition loads the offer, lets apply mutate it into the next state and persists the change
// conditioned on the status it was loaded with.
func (s *Service) transition(
	ctx context.Context,
	offerID string,
	apply func(o *domain.Offer, now time.Time) (repository.OfferTransition, error),
) (*domain.Offer, error) {
	release, ok := s.inflight.TryAcquire(offerID)
	if !ok {
		return nil, ErrOfferBusy
	}
	defer release()

	o, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	now := s.now()
	t, err := apply(o, now)
	if err != nil {
		return nil, err
	}
	o.UpdatedAt = now
	t.Offer = o
	t.From = from

	if err := s.offers.TransitionOffer(ctx, t); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrListingReserved) {
			s.log.Warn().Err(err).Str("offer_id", offerID).Str("from", from.String()).Msg("offer transition lost")
			return nil, err
		}
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}
	o.Messages = append(o.Messages, t.Message)

	s.log.Info().
		Str("offer_id", o.ID).
		Str("from", from.String()).
		Str("to", o.Status.String()).
		Msg("offer transitioned")
	return o, nil
}

func (s *Service) invalidate(buyerID string) {
	if s.invalidator == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.invalidator.Invalidate(ctx, buyerID); err != nil {
		s.log.Warn().Err(err).Str("buyer_id", buyerID).Msg("reservation cache invalidate error")
	}
}

func systemMessage(sender, text string, at time.Time) domain.OfferMessage {
	return domain.OfferMessage{
		SenderID:        sender,
		MessageText:     text,
		CreatedAt:       at,
		IsSystemMessage: true,
	}
}
