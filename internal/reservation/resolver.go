package reservation

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
)

// Source lists the reservations held for an identity. A 401-class failure is reported as
// domain.ErrUnauthorized.
type Source interface {
	Reserved(ctx context.Context, identity domain.Identity) ([]domain.ReservedCartEntry, error)
}

// Resolver turns an identity's reservations into locked cart items.
type Resolver struct {
	source Source
	log    zerolog.Logger
}

func NewResolver(source Source, log zerolog.Logger) *Resolver {
	return &Resolver{source: source, log: log.With().Str("component", "reservation").Logger()}
}

// Resolve returns no items, and no error, for anonymous callers and for rejected tokens.
func (r *Resolver) Resolve(ctx context.Context, identity domain.Identity) ([]domain.CartItem, error) {
	if !identity.IsAuthenticated() {
		return []domain.CartItem{}, nil
	}

	entries, err := r.source.Reserved(ctx, identity)
	if errors.Is(err, domain.ErrUnauthorized) {
		r.log.Debug().Err(err).Str("user_id", identity.UserID).Msg("reservation fetch unauthorized, treating as empty")
		return []domain.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, 0, len(entries))
	for i := range entries {
		items = append(items, entries[i].CartItem())
	}
	return items, nil
}

// Entries is Resolve without the mapping, for callers that render reservation details.
func (r *Resolver) Entries(ctx context.Context, identity domain.Identity) ([]domain.ReservedCartEntry, error) {
	if !identity.IsAuthenticated() {
		return []domain.ReservedCartEntry{}, nil
	}
	entries, err := r.source.Reserved(ctx, identity)
	if errors.Is(err, domain.ErrUnauthorized) {
		r.log.Debug().Err(err).Str("user_id", identity.UserID).Msg("reservation fetch unauthorized, treating as empty")
		return []domain.ReservedCartEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}
