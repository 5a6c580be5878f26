package offer

import (
	"context"
	"sort"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

type mockRepository struct {
	m            sync.Mutex
	listings     map[string]*domain.Listing
	offers       map[string]*domain.Offer
	reservations []repository.OfferTransition
	err          error
	// onTransition runs before a transition is applied, outside the lock
	onTransition func()
}

func newMockRepository(listings ...*domain.Listing) *mockRepository {
	m := &mockRepository{
		listings: make(map[string]*domain.Listing),
		offers:   make(map[string]*domain.Offer),
	}
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return m
}

func copyOffer(o *domain.Offer) *domain.Offer {
	c := *o
	c.Messages = append([]domain.OfferMessage{}, o.Messages...)
	if o.CounterOfferAmount != nil {
		v := *o.CounterOfferAmount
		c.CounterOfferAmount = &v
	}
	return &c
}

func (m *mockRepository) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	c := *l
	return &c, nil
}

func (m *mockRepository) CreateOffer(_ context.Context, o *domain.Offer) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.offers {
		if existing.ListingID == o.ListingID && existing.BuyerID == o.BuyerID && existing.Status.IsActive() {
			return repository.ErrActiveOfferExists
		}
	}
	m.offers[o.ID] = copyOffer(o)
	return nil
}

func (m *mockRepository) GetOffer(_ context.Context, id string) (*domain.Offer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.offers[id]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	return copyOffer(o), nil
}

func (m *mockRepository) FindActiveOffer(_ context.Context, listingID, buyerID string) (*domain.Offer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.offers {
		if o.ListingID == listingID && o.BuyerID == buyerID && o.Status.IsActive() {
			return copyOffer(o), nil
		}
	}
	return nil, repository.ErrOfferNotFound
}

func (m *mockRepository) ListOffers(_ context.Context, f repository.OfferFilter) ([]*domain.Offer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Offer{}
	for _, o := range m.offers {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		if f.SellerID != "" && o.SellerID != f.SellerID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
			continue
		}
		out = append(out, copyOffer(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *mockRepository) TransitionOffer(_ context.Context, t repository.OfferTransition) error {
	if m.onTransition != nil {
		m.onTransition()
	}
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	stored, ok := m.offers[t.Offer.ID]
	if !ok || stored.Status != t.From {
		return repository.ErrConcurrentUpdate
	}
	if t.Reservation != nil {
		for _, r := range m.reservations {
			if r.Reservation.ListingID == t.Reservation.ListingID {
				return repository.ErrListingReserved
			}
		}
		m.reservations = append(m.reservations, t)
	}
	next := copyOffer(t.Offer)
	next.Messages = append(next.Messages, t.Message)
	m.offers[t.Offer.ID] = next
	return nil
}

func containsStatus(list []domain.OfferStatus, s domain.OfferStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type mockInvalidator struct {
	m     sync.Mutex
	calls []string
}

func (i *mockInvalidator) Invalidate(_ context.Context, buyerID string) error {
	i.m.Lock()
	defer i.m.Unlock()
	i.calls = append(i.calls, buyerID)
	return nil
}
