package offer

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStaleReservationWarning(t *testing.T) {
	accepted := &domain.Offer{BuyerID: "buyer-1", Status: domain.OfferStatusAccepted}
	countered := &domain.Offer{BuyerID: "buyer-1", Status: domain.OfferStatusCountered}
	disabled := &domain.Listing{Disabled: true}
	live := &domain.Listing{}

	tests := []struct {
		name    string
		offer   *domain.Offer
		listing *domain.Listing
		viewer  string
		want    Warning
	}{
		{"buyer on disabled listing", accepted, disabled, "buyer-1", WarningProceedToCart},
		{"someone else on disabled listing", accepted, disabled, "buyer-2", WarningStaleReservation},
		{"anonymous on disabled listing", accepted, disabled, "", WarningStaleReservation},
		{"live listing", accepted, live, "buyer-1", WarningNone},
		{"not accepted", countered, disabled, "buyer-1", WarningNone},
		{"nil listing", accepted, nil, "buyer-1", WarningNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StaleReservationWarning(tt.offer, tt.listing, tt.viewer))
		})
	}
}
