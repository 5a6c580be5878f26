package domain

import "time"

// CartItem is one line of the cart a buyer sees. Locked items come from accepted offers.
type CartItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Image    string  `json:"image"`
	IsLocked bool    `json:"is_locked"`
	OfferID  *string `json:"offer_id,omitempty"`
}

// ReservationStatus represents the state of a listing reservation
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationReleased  ReservationStatus = "released"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCompleted ReservationStatus = "completed"
)

// ReservedCartEntry is a listing held for a buyer because their offer was accepted.
type ReservedCartEntry struct {
	ListingID string    `json:"listing_id"`
	OfferID   string    `json:"offer_id"`
	BuyerID   string    `json:"-"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the reservation window has passed
func (e *ReservedCartEntry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func (e *ReservedCartEntry) CartItem() CartItem {
	offerID := e.OfferID
	return CartItem{
		ID:       e.ListingID,
		Title:    e.Title,
		Price:    e.Price,
		Currency: e.Currency,
		Image:    e.Image,
		IsLocked: true,
		OfferID:  &offerID,
	}
}

// ReservationEvent is published when a reservation leaves the active state without an offer transition.
type ReservationEvent struct {
	ListingID  string            `json:"listing_id"`
	OfferID    string            `json:"offer_id"`
	BuyerID    string            `json:"buyer_id"`
	Status     ReservationStatus `json:"status"`
	OccurredAt time.Time         `json:"occurred_at"`
}
