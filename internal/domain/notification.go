package domain

import "time"

type NotificationType string

const (
	NotificationOffer   NotificationType = "offer"
	NotificationMessage NotificationType = "message"
)

// Notification is a feed entry. Offer fields are set for Type offer, message fields for Type message.
type Notification struct {
	Type NotificationType `json:"type"`

	OfferID       string      `json:"offer_id,omitempty"`
	Status        OfferStatus `json:"status,omitempty"`
	Amount        float64     `json:"amount,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	CounterAmount *float64    `json:"counter_amount,omitempty"`
	UpdatedAt     *time.Time  `json:"updated_at,omitempty"`
	IsNew         bool        `json:"is_new,omitempty"`

	ConversationID string     `json:"conversation_id,omitempty"`
	UnreadCount    int64      `json:"unread_count,omitempty"`
	LastMessage    string     `json:"last_message,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
}

func OfferNotification(o *Offer) Notification {
	updatedAt := o.UpdatedAt
	return Notification{
		Type:          NotificationOffer,
		OfferID:       o.ID,
		Status:        o.Status,
		Amount:        o.CurrentOfferAmount,
		Currency:      o.Currency,
		CounterAmount: o.CounterOfferAmount,
		UpdatedAt:     &updatedAt,
		IsNew:         o.Status == OfferStatusCountered,
	}
}

func MessageNotification(c *Conversation) Notification {
	lastAt := c.LastMessageAt
	return Notification{
		Type:           NotificationMessage,
		ConversationID: c.ID,
		UnreadCount:    c.UnreadCount,
		LastMessage:    c.LastMessage,
		LastMessageAt:  &lastAt,
	}
}

// SortTime is updated_at for offers and last_message_at for messages.
func (n Notification) SortTime() time.Time {
	switch n.Type {
	case NotificationOffer:
		if n.UpdatedAt != nil {
			return *n.UpdatedAt
		}
	case NotificationMessage:
		if n.LastMessageAt != nil {
			return *n.LastMessageAt
		}
	}
	return time.Time{}
}

// Key identifies the underlying record so the feed never lists it twice.
func (n Notification) Key() string {
	if n.Type == NotificationOffer {
		return "offer:" + n.OfferID
	}
	return "message:" + n.ConversationID
}

type NotificationCounts struct {
	Offers   int   `json:"offers"`
	Messages int64 `json:"messages"`
	Total    int64 `json:"total"`
}
