package reservation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buyer = domain.Identity{UserID: "buyer-1", Role: domain.RoleBuyer, Token: "t"}

func entry(listingID string, price float64, expiresIn time.Duration) domain.ReservedCartEntry {
	now := time.Now()
	return domain.ReservedCartEntry{
		ListingID: listingID,
		OfferID:   "offer-" + listingID,
		BuyerID:   "buyer-1",
		Title:     "Listing " + listingID,
		Price:     price,
		Currency:  "USD",
		IsLocked:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestResolve_AnonymousMakesNoCall(t *testing.T) {
	src := &mockSource{entries: []domain.ReservedCartEntry{entry("lst-1", 650, time.Hour)}}
	r := NewResolver(src, zerolog.Nop())

	items, err := r.Resolve(context.Background(), domain.Anonymous())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Equal(t, 0, src.calls)
}

func TestResolve_UnauthorizedIsEmpty(t *testing.T) {
	src := &mockSource{err: fmt.Errorf("GET /cart/reserved: %w", domain.ErrUnauthorized)}
	r := NewResolver(src, zerolog.Nop())

	items, err := r.Resolve(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, items)

	entries, err := r.Entries(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolve_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(&mockSource{err: boom}, zerolog.Nop())

	_, err := r.Resolve(context.Background(), buyer)
	assert.ErrorIs(t, err, boom)
}

func TestResolve_MapsToLockedItems(t *testing.T) {
	src := &mockSource{entries: []domain.ReservedCartEntry{entry("lst-1", 650, time.Hour), entry("lst-2", 20, time.Hour)}}
	r := NewResolver(src, zerolog.Nop())

	items, err := r.Resolve(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "lst-1", items[0].ID)
	assert.Equal(t, 650.0, items[0].Price)
	assert.True(t, items[0].IsLocked)
	require.NotNil(t, items[0].OfferID)
	assert.Equal(t, "offer-lst-1", *items[0].OfferID)
}
