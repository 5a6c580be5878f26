package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
)

type mockCart struct {
	items []domain.CartItem
	err   error
	calls int
}

func (m *mockCart) Items(context.Context, domain.Identity, string) ([]domain.CartItem, error) {
	m.calls++
	return m.items, m.err
}

// recordingProvider wraps the sandbox and keeps every charge it was asked for.
type recordingProvider struct {
	*payment.Sandbox
	mu      sync.Mutex
	charges []payment.Charge
}

func newRecordingProvider(decider payment.Decider) *recordingProvider {
	return &recordingProvider{Sandbox: payment.NewSandbox("http://pay.local", decider)}
}

func (r *recordingProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	r.mu.Lock()
	r.charges = append(r.charges, req.Charge)
	r.mu.Unlock()
	return r.Sandbox.CreateSession(ctx, req)
}

func (r *recordingProvider) CreateOrder(ctx context.Context, charge payment.Charge) (*payment.Order, error) {
	r.mu.Lock()
	r.charges = append(r.charges, charge)
	r.mu.Unlock()
	return r.Sandbox.CreateOrder(ctx, charge)
}

type mockCompleter struct {
	buyerID    string
	listingIDs []string
	calls      int
	err        error
}

func (m *mockCompleter) CompleteReservations(_ context.Context, buyerID string, listingIDs []string, _ time.Time) error {
	m.calls++
	m.buyerID = buyerID
	m.listingIDs = listingIDs
	return m.err
}

type mockInvalidator struct {
	buyers []string
}

func (m *mockInvalidator) Invalidate(_ context.Context, buyerID string) error {
	m.buyers = append(m.buyers, buyerID)
	return nil
}
