package checkout

import (
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   "Sam Rivera",
		Line1:      "12 Harbor St",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func offerID(id string) *string { return &id }

func sampleItems() []domain.CartItem {
	return []domain.CartItem{
		{ID: "lst-1001", Title: "Leica M6", Price: 650, Currency: "USD", IsLocked: true, OfferID: offerID("off-1")},
		{ID: "lst-1005", Title: "Famicom", Price: 180, Currency: "USD"},
	}
}

func TestAssemble(t *testing.T) {
	req, err := Assemble(sampleItems(), fullAddress())
	require.NoError(t, err)

	assert.Equal(t, []domain.CheckoutLine{
		{ListingID: "lst-1001", Quantity: 1},
		{ListingID: "lst-1005", Quantity: 1},
	}, req.Items)
	assert.Equal(t, fullAddress(), req.ShippingAddress)
}

func TestAssemble_OneLinePerListing(t *testing.T) {
	items := append(sampleItems(), domain.CartItem{ID: "lst-1001", Title: "Leica M6", Price: 800})

	req, err := Assemble(items, fullAddress())
	require.NoError(t, err)
	assert.Len(t, req.Items, 2)
}

func TestAssemble_EmptyCart(t *testing.T) {
	_, err := Assemble(nil, fullAddress())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestAssemble_IncompleteAddress(t *testing.T) {
	address := fullAddress()
	address.City = ""
	address.PostalCode = "   "

	_, err := Assemble(sampleItems(), address)
	require.ErrorIs(t, err, ErrIncompleteAddress)

	var incomplete *IncompleteAddressError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"city", "postal_code"}, incomplete.Missing)
	assert.Contains(t, err.Error(), "city, postal_code")
}

func TestAssemble_Line2IsOptional(t *testing.T) {
	address := fullAddress()
	address.Line2 = ""
	_, err := Assemble(sampleItems(), address)
	assert.NoError(t, err)
}

func TestSummarize(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	summary := Summarize(sampleItems(), at)

	assert.Equal(t, 830.0, summary.TotalAmount)
	assert.Equal(t, "USD", summary.Currency)
	assert.Equal(t, at, summary.CapturedAt)
	require.Len(t, summary.Items, 2)
	assert.Equal(t, 650.0, summary.Items[0].UnitPrice)
	assert.Equal(t, "off-1", *summary.Items[0].OfferID)
	assert.Nil(t, summary.Items[1].OfferID)
}

func TestMatches(t *testing.T) {
	assembled := []domain.CheckoutLine{{ListingID: "a", Quantity: 1}, {ListingID: "b", Quantity: 1}}

	tests := []struct {
		name      string
		requested []domain.CheckoutLine
		want      bool
	}{
		{name: "same order", requested: assembled, want: true},
		{name: "reordered", requested: []domain.CheckoutLine{{ListingID: "b", Quantity: 1}, {ListingID: "a", Quantity: 1}}, want: true},
		{name: "quantity omitted", requested: []domain.CheckoutLine{{ListingID: "a"}, {ListingID: "b"}}, want: true},
		{name: "missing item", requested: []domain.CheckoutLine{{ListingID: "a", Quantity: 1}}},
		{name: "extra item", requested: append(assembled, domain.CheckoutLine{ListingID: "c", Quantity: 1})},
		{name: "duplicate", requested: []domain.CheckoutLine{{ListingID: "a", Quantity: 1}, {ListingID: "a", Quantity: 1}}},
		{name: "quantity two", requested: []domain.CheckoutLine{{ListingID: "a", Quantity: 2}, {ListingID: "b", Quantity: 1}}},
		{name: "empty", requested: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matches(tt.requested, assembled))
		})
	}
}
