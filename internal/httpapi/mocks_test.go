package httpapi

import (
	"context"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/reservation"
)

// countingSource records how often reservations were looked up.
type countingSource struct {
	inner reservation.Source
	calls atomic.Int32
}

func (c *countingSource) Reserved(ctx context.Context, identity domain.Identity) ([]domain.ReservedCartEntry, error) {
	c.calls.Add(1)
	return c.inner.Reserved(ctx, identity)
}
