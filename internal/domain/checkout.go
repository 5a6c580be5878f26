package domain

import (
	"strings"
	"time"
)

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// MissingFields lists the required fields that are blank. Line2 is optional.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"full_name", a.FullName},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type CheckoutLine struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is what both payment paths consume.
type CheckoutRequest struct {
	Items           []CheckoutLine  `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

type CheckoutSummaryItem struct {
	ListingID string  `json:"listing_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	OfferID   *string `json:"offer_id,omitempty"`
}

// CheckoutSummary represents the priced cart at checkout time
type CheckoutSummary struct {
	Items       []CheckoutSummaryItem `json:"items"`
	TotalAmount float64               `json:"total_amount"`
	Currency    string                `json:"currency"`
	CapturedAt  time.Time             `json:"captured_at"`
}
