package notification

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockOffers struct {
	offers      []*domain.Offer
	err         error
	mineCalls   atomic.Int32
	sellerCalls atomic.Int32
}

func (m *mockOffers) ListMine(context.Context, domain.Identity, ...domain.OfferStatus) ([]*domain.Offer, error) {
	m.mineCalls.Add(1)
	return m.offers, m.err
}

func (m *mockOffers) ListForSeller(context.Context, domain.Identity, ...domain.OfferStatus) ([]*domain.Offer, error) {
	m.sellerCalls.Add(1)
	return m.offers, m.err
}

type mockConversations struct {
	conversations []*domain.Conversation
	unread        int64
	listErr       error
	unreadErr     error
	calls         atomic.Int32
}

func (m *mockConversations) ListConversations(context.Context, domain.Identity) ([]*domain.Conversation, error) {
	m.calls.Add(1)
	return m.conversations, m.listErr
}

func (m *mockConversations) UnreadCount(context.Context, domain.Identity) (int64, error) {
	m.calls.Add(1)
	return m.unread, m.unreadErr
}

// scriptedSource returns queued feeds; a run can be held until released.
type scriptedSource struct {
	mu    sync.Mutex
	runs  int
	gates map[int]chan struct{}
	feeds map[int]Feed
}

func (s *scriptedSource) Aggregate(context.Context, domain.Identity) Feed {
	s.mu.Lock()
	s.runs++
	run := s.runs
	gate := s.gates[run]
	feed := s.feeds[run]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return feed
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
