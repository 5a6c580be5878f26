package offer

import "github.com/fjod/go_cart/storefront/internal/domain"

type Warning string

const (
	WarningNone             Warning = ""
	WarningProceedToCart    Warning = "proceed_to_cart"
	WarningStaleReservation Warning = "stale_reservation"
)

// StaleReservationWarning is display-only: an accepted offer on a listing that has since been
// disabled tells its buyer to finish in the cart and tells anyone else the reservation is stale.
func StaleReservationWarning(o *domain.Offer, l *domain.Listing, viewerID string) Warning {
	if o == nil || l == nil {
		return WarningNone
	}
	if o.Status != domain.OfferStatusAccepted || !l.Disabled {
		return WarningNone
	}
	if viewerID != "" && viewerID == o.BuyerID {
		return WarningProceedToCart
	}
	return WarningStaleReservation
}
