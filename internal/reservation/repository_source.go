package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// RepositorySource reads reservations from the database through an optional redis cache.
type RepositorySource struct {
	repo  repository.ReservationRepository
	cache *Cache
	sfg   singleflight.Group // Prevents cache stampede
	now   func() time.Time
	log   zerolog.Logger
}

func NewRepositorySource(repo repository.ReservationRepository, cache *Cache, log zerolog.Logger) *RepositorySource {
	return &RepositorySource{
		repo:  repo,
		cache: cache,
		now:   time.Now,
		log:   log.With().Str("component", "reservation_source").Logger(),
	}
}

func (s *RepositorySource) Reserved(ctx context.Context, identity domain.Identity) ([]domain.ReservedCartEntry, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	buyerID := identity.UserID

	v, err, _ := s.sfg.Do(buyerID, func() (interface{}, error) {
		if s.cache != nil {
			entries, err := s.cache.Get(ctx, buyerID)
			if err == nil {
				return entries, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				s.log.Warn().Err(err).Msg("cache get error") // log cache error but continue
			}
		}

		// read the generation first; an invalidation during the query makes Set a no-op
		var (
			gen    int64
			genErr error
		)
		if s.cache != nil {
			gen, genErr = s.cache.Generation(ctx, buyerID)
			if genErr != nil {
				s.log.Warn().Err(genErr).Msg("cache generation error")
			}
		}

		entries, err := s.repo.ListActiveReservations(ctx, buyerID, s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to list reservations: %w", err)
		}

		if s.cache != nil && genErr == nil {
			written, errSet := s.cache.Set(ctx, buyerID, gen, entries)
			if errSet != nil {
				s.log.Warn().Err(errSet).Msg("cache set error")
			} else if !written {
				s.log.Debug().Str("buyer_id", buyerID).Msg("reservations invalidated during read, not caching")
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	// a cached copy may outlive an entry's window
	now := s.now()
	all := v.([]domain.ReservedCartEntry)
	live := make([]domain.ReservedCartEntry, 0, len(all))
	for i := range all {
		if all[i].IsExpired(now) {
			continue
		}
		e := all[i]
		e.BuyerID = buyerID
		live = append(live, e)
	}
	return live, nil
}

// Invalidate forwards to the cache; it satisfies the offer service's invalidator.
func (s *RepositorySource) Invalidate(ctx context.Context, buyerID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, buyerID)
}
