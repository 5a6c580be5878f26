package domain

import "time"

// Conversation as seen by one participant; UnreadCount is relative to that participant.
type Conversation struct {
	ID             string    `json:"id" bson:"_id"`
	ListingID      string    `json:"listing_id,omitempty" bson:"listing_id,omitempty"`
	ParticipantIDs []string  `json:"participant_ids" bson:"participant_ids"`
	LastMessage    string    `json:"last_message" bson:"last_message"`
	LastMessageAt  time.Time `json:"last_message_at" bson:"last_message_at"`
	UnreadCount    int64     `json:"unread_count" bson:"-"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

type ConversationMessage struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id"`
	SenderID       string    `json:"sender_id" bson:"sender_id"`
	Text           string    `json:"text" bson:"text"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
