package domain

import "time"

// Listing is the slice of the catalog the negotiation flow needs. The catalog owns it.
type Listing struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Image     string    `json:"image"`
	SellerID  string    `json:"seller_id"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}
