package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIncompleteAddress = errors.New("shipping address is incomplete")
	ErrCartMismatch      = errors.New("checkout items do not match the cart")
	ErrOrderNotFound     = errors.New("checkout order not found")
)

// IncompleteAddressError names the blank required fields.
type IncompleteAddressError struct {
	Missing []string
}

func (e *IncompleteAddressError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncompleteAddress, strings.Join(e.Missing, ", "))
}

func (e *IncompleteAddressError) Unwrap() error {
	return ErrIncompleteAddress
}

func validateAddress(address domain.ShippingAddress) error {
	if missing := address.MissingFields(); len(missing) > 0 {
		return &IncompleteAddressError{Missing: missing}
	}
	return nil
}

// Assemble builds the provider-agnostic checkout request: one line per distinct listing, quantity 1.
func Assemble(items []domain.CartItem, address domain.ShippingAddress) (domain.CheckoutRequest, error) {
	if len(items) == 0 {
		return domain.CheckoutRequest{}, ErrEmptyCart
	}
	if err := validateAddress(address); err != nil {
		return domain.CheckoutRequest{}, err
	}

	lines := make([]domain.CheckoutLine, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		lines = append(lines, domain.CheckoutLine{ListingID: item.ID, Quantity: 1})
	}

	return domain.CheckoutRequest{Items: lines, ShippingAddress: address}, nil
}

// Summarize prices the cart the same way for every payment path.
func Summarize(items []domain.CartItem, at time.Time) domain.CheckoutSummary {
	items = cart.Reconcile(nil, items)
	total, currency := cart.Totals(items)

	summary := domain.CheckoutSummary{
		Items:       make([]domain.CheckoutSummaryItem, 0, len(items)),
		TotalAmount: total,
		Currency:    currency,
		CapturedAt:  at,
	}
	for _, item := range items {
		summary.Items = append(summary.Items, domain.CheckoutSummaryItem{
			ListingID: item.ID,
			Title:     item.Title,
			Quantity:  1,
			UnitPrice: item.Price,
			OfferID:   item.OfferID,
		})
	}
	return summary
}

// matches reports whether the requested lines name exactly the assembled listings.
func matches(requested, assembled []domain.CheckoutLine) bool {
	if len(requested) != len(assembled) {
		return false
	}
	want := make(map[string]struct{}, len(assembled))
	for _, line := range assembled {
		want[line.ListingID] = struct{}{}
	}
	for _, line := range requested {
		if line.Quantity != 0 && line.Quantity != 1 {
			return false
		}
		if _, ok := want[line.ListingID]; !ok {
			return false
		}
		delete(want, line.ListingID)
	}
	return len(want) == 0
}
