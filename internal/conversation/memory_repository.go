package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
)

type memoryConversation struct {
	conv     domain.Conversation
	unread   map[string]int64
	messages []domain.ConversationMessage
}

// MemoryRepository keeps conversations in process. Used by tests and the sqlite profile.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*memoryConversation
	byKey map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*memoryConversation),
		byKey: make(map[string]string),
	}
}

func (m *MemoryRepository) FindOrCreate(_ context.Context, listingID string, participants []string, at time.Time) (*domain.Conversation, error) {
	sorted := append([]string{}, participants...)
	sort.Strings(sorted)
	key := listingID + "/" + strings.Join(sorted, "|")

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[key]; ok {
		return m.view(m.byID[id], sorted[0]), nil
	}

	c := &memoryConversation{
		conv: domain.Conversation{
			ID:             uuid.NewString(),
			ListingID:      listingID,
			ParticipantIDs: sorted,
			LastMessageAt:  at,
			CreatedAt:      at,
		},
		unread: make(map[string]int64),
	}
	m.byID[c.conv.ID] = c
	m.byKey[key] = c.conv.ID
	return m.view(c, sorted[0]), nil
}

func (m *MemoryRepository) ListForParticipant(_ context.Context, userID string) ([]*domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*domain.Conversation{}
	for _, c := range m.byID {
		if isParticipant(c.conv.ParticipantIDs, userID) {
			out = append(out, m.view(c, userID))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (m *MemoryRepository) AppendMessage(_ context.Context, msg *domain.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.get(msg.ConversationID, msg.SenderID)
	if err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	c.messages = append(c.messages, *msg)
	c.conv.LastMessage = msg.Text
	c.conv.LastMessageAt = msg.CreatedAt
	for _, p := range c.conv.ParticipantIDs {
		if p != msg.SenderID {
			c.unread[p]++
		}
	}
	return nil
}

func (m *MemoryRepository) Messages(_ context.Context, conversationID, userID string) ([]domain.ConversationMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.get(conversationID, userID)
	if err != nil {
		return nil, err
	}
	return append([]domain.ConversationMessage{}, c.messages...), nil
}

func (m *MemoryRepository) MarkRead(_ context.Context, conversationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[conversationID]
	if !ok || !isParticipant(c.conv.ParticipantIDs, userID) {
		return ErrConversationNotFound
	}
	c.unread[userID] = 0
	return nil
}

func (m *MemoryRepository) UnreadCount(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, c := range m.byID {
		total += c.unread[userID]
	}
	return total, nil
}

// get must be called with the lock held.
func (m *MemoryRepository) get(conversationID, userID string) (*memoryConversation, error) {
	c, ok := m.byID[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	if !isParticipant(c.conv.ParticipantIDs, userID) {
		return nil, ErrNotParticipant
	}
	return c, nil
}

func (m *MemoryRepository) view(c *memoryConversation, viewerID string) *domain.Conversation {
	out := c.conv
	out.ParticipantIDs = append([]string{}, c.conv.ParticipantIDs...)
	out.UnreadCount = c.unread[viewerID]
	return &out
}

func isParticipant(ids []string, userID string) bool {
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
