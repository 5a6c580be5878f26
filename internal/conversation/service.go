package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
)

const MaxMessageLength = 2000

var (
	ErrMessageTooLong   = errors.New("message text is too long")
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
)

type Service struct {
	repo Repository
	now  func() time.Time
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
		log:  log.With().Str("component", "conversation").Logger(),
	}
}

func (s *Service) ListConversations(ctx context.Context, identity domain.Identity) ([]*domain.Conversation, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.ListForParticipant(ctx, identity.UserID)
}

func (s *Service) UnreadCount(ctx context.Context, identity domain.Identity) (int64, error) {
	if !identity.IsAuthenticated() {
		return 0, domain.ErrUnauthorized
	}
	return s.repo.UnreadCount(ctx, identity.UserID)
}

// Start opens (or reuses) the conversation about a listing between the caller and withUserID.
func (s *Service) Start(ctx context.Context, identity domain.Identity, listingID, withUserID string) (*domain.Conversation, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	if withUserID == "" || withUserID == identity.UserID {
		return nil, ErrSelfConversation
	}
	return s.repo.FindOrCreate(ctx, listingID, []string{identity.UserID, withUserID}, s.now().UTC())
}

func (s *Service) Send(ctx context.Context, identity domain.Identity, conversationID, text string) (*domain.ConversationMessage, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(text)) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := &domain.ConversationMessage{
		ConversationID: conversationID,
		SenderID:       identity.UserID,
		Text:           text,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		if errors.Is(err, ErrConversationNotFound) || errors.Is(err, ErrNotParticipant) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Debug().
		Str("conversation_id", conversationID).
		Str("sender_id", identity.UserID).
		Msg("message sent")
	return msg, nil
}

func (s *Service) Messages(ctx context.Context, identity domain.Identity, conversationID string) ([]domain.ConversationMessage, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.Messages(ctx, conversationID, identity.UserID)
}

func (s *Service) MarkRead(ctx context.Context, identity domain.Identity, conversationID string) error {
	if !identity.IsAuthenticated() {
		return domain.ErrUnauthorized
	}
	return s.repo.MarkRead(ctx, conversationID, identity.UserID)
}
