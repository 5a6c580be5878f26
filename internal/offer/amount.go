package offer

import (
	"fmt"
	"math"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ValidateAmount accepts positive, finite amounts up to max. max <= 0 means domain.MaxOfferAmount.
func ValidateAmount(amount, max float64) error {
	if max <= 0 {
		max = domain.MaxOfferAmount
	}
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidAmount)
	case amount <= 0:
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	case amount > max:
		return fmt.Errorf("%w: amount must not exceed %s", ErrInvalidAmount, domain.FormatPrice(max, domain.DefaultCurrency))
	}
	return nil
}
