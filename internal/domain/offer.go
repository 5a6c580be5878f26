package domain

import "time"

// MaxOfferAmount is the ceiling for any offer or counter amount, in listing currency units.
const MaxOfferAmount = 99999

type OfferMessage struct {
	SenderID        string    `json:"sender_id"`
	MessageText     string    `json:"message_text"`
	CreatedAt       time.Time `json:"created_at"`
	IsSystemMessage bool      `json:"is_system_message"`
}

// Offer is the durable negotiation record for one (listing, buyer) pair.
type Offer struct {
	ID                 string         `json:"id"`
	ListingID          string         `json:"listing_id"`
	BuyerID            string         `json:"buyer_id"`
	SellerID           string         `json:"seller_id"`
	InitialOfferAmount float64        `json:"initial_offer_amount"`
	CurrentOfferAmount float64        `json:"current_offer_amount"`
	CounterOfferAmount *float64       `json:"counter_offer_amount"`
	Currency           string         `json:"currency"`
	Status             OfferStatus    `json:"status"`
	Messages           []OfferMessage `json:"messages"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NotificationTime is the timestamp the notification feed ranks offers by.
func (o *Offer) NotificationTime() time.Time {
	return o.UpdatedAt
}

// OfferEvent is the payload written to the outbox for every offer transition.
type OfferEvent struct {
	OfferID       string      `json:"offer_id"`
	ListingID     string      `json:"listing_id"`
	BuyerID       string      `json:"buyer_id"`
	SellerID      string      `json:"seller_id"`
	Status        OfferStatus `json:"status"`
	Amount        float64     `json:"amount"`
	CounterAmount *float64    `json:"counter_amount,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func NewOfferEvent(o *Offer) OfferEvent {
	return OfferEvent{
		OfferID:       o.ID,
		ListingID:     o.ListingID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Status:        o.Status,
		Amount:        o.CurrentOfferAmount,
		CounterAmount: o.CounterOfferAmount,
		OccurredAt:    o.UpdatedAt,
	}
}

const (
	EventOfferSubmitted     = "offer.submitted"
	EventOfferCountered     = "offer.countered"
	EventOfferAccepted      = "offer.accepted"
	EventOfferRejected      = "offer.rejected"
	EventReservationExpired = "reservation.expired"
)

// EventType maps the offer status carried by the event to its outbox event type.
func (e OfferEvent) EventType() string {
	switch e.Status {
	case OfferStatusCountered:
		return EventOfferCountered
	case OfferStatusAccepted:
		return EventOfferAccepted
	case OfferStatusRejected:
		return EventOfferRejected
	default:
		return EventOfferSubmitted
	}
}
