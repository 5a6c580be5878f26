package payment

import (
	"context"
	"errors"
)

var (
	ErrDeclined            = errors.New("payment declined by provider")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrOrderNotFound       = errors.New("provider order not found")
)

const (
	CaptureStatusCompleted = "COMPLETED"
	CaptureStatusDeclined  = "DECLINED"
)

type Line struct {
	ListingID  string  `json:"listing_id"`
	Title      string  `json:"title"`
	UnitAmount float64 `json:"unit_amount"`
	Quantity   int     `json:"quantity"`
}

type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Charge is the provider-agnostic description of what the buyer pays for.
type Charge struct {
	CustomerID string  `json:"customer_id"`
	Lines      []Line  `json:"lines"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
	Shipping   Address `json:"shipping"`
}

type SessionRequest struct {
	Charge
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Capture struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// RedirectProvider hands the buyer off to a hosted payment page.
type RedirectProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// OrderProvider creates an order the buyer approves client-side, then captures it.
type OrderProvider interface {
	CreateOrder(ctx context.Context, charge Charge) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Capture, error)
}
