package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
)

var ErrListingUnavailable = errors.New("listing is not available")

// ReservedItems yields the locked items held for an identity.
type ReservedItems interface {
	Resolve(ctx context.Context, identity domain.Identity) ([]domain.CartItem, error)
}

type Catalog interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

// Service combines the local store with the caller's reservations.
type Service struct {
	store    LocalStore
	reserved ReservedItems
	catalog  Catalog
	log      zerolog.Logger
}

func NewService(store LocalStore, reserved ReservedItems, catalog Catalog, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		reserved: reserved,
		catalog:  catalog,
		log:      log.With().Str("component", "cart").Logger(),
	}
}

// Items returns the reconciled cart. It is recomputed on every call.
func (s *Service) Items(ctx context.Context, identity domain.Identity, ns string) ([]domain.CartItem, error) {
	reserved, err := s.reserved.Resolve(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reserved items: %w", err)
	}

	var local []domain.CartItem
	if ns != "" {
		local, err = s.store.List(ctx, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to list local cart: %w", err)
		}
	}
	return Reconcile(reserved, local), nil
}

func (s *Service) View(ctx context.Context, identity domain.Identity, ns string) (View, error) {
	items, err := s.Items(ctx, identity, ns)
	if err != nil {
		return View{}, err
	}
	return NewView(items), nil
}

// Add puts a catalog listing into the local cart at its catalog price.
func (s *Service) Add(ctx context.Context, ns, listingID string) (bool, error) {
	listing, err := s.catalog.GetListing(ctx, listingID)
	if err != nil {
		return false, err
	}
	if listing.Disabled {
		return false, ErrListingUnavailable
	}
	return s.store.Add(ctx, ns, domain.CartItem{
		ID:       listing.ID,
		Title:    listing.Title,
		Price:    listing.Price,
		Currency: listing.Currency,
		Image:    listing.Image,
	})
}

// Remove deletes a local item unless the identity holds a reservation on it.
func (s *Service) Remove(ctx context.Context, identity domain.Identity, ns, listingID string) (bool, error) {
	lock := LockCheckerFunc(func(ctx context.Context, id string) (bool, error) {
		reserved, err := s.reserved.Resolve(ctx, identity)
		if err != nil {
			return false, err
		}
		for _, item := range reserved {
			if item.ID == id {
				return true, nil
			}
		}
		return false, nil
	})

	removed, err := s.store.Remove(ctx, ns, listingID, lock)
	if errors.Is(err, ErrItemLocked) {
		s.log.Debug().Str("listing_id", listingID).Msg("refused to remove reserved item")
	}
	return removed, err
}
