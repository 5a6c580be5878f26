package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrEmptyMessage         = errors.New("message text is required")
)

// Repository stores conversations and their messages. Unread counters are kept per participant.
type Repository interface {
	// FindOrCreate returns the conversation about listingID between exactly these participants.
	FindOrCreate(ctx context.Context, listingID string, participants []string, at time.Time) (*domain.Conversation, error)
	ListForParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error)
	// AppendMessage stores msg and bumps the unread counter of every other participant.
	AppendMessage(ctx context.Context, msg *domain.ConversationMessage) error
	Messages(ctx context.Context, conversationID, userID string) ([]domain.ConversationMessage, error)
	MarkRead(ctx context.Context, conversationID, userID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
}
