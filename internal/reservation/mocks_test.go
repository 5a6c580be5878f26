package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockSource struct {
	m       sync.Mutex
	entries []domain.ReservedCartEntry
	err     error
	calls   int
}

func (s *mockSource) Reserved(context.Context, domain.Identity) ([]domain.ReservedCartEntry, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type mockReservationRepo struct {
	m       sync.Mutex
	entries map[string][]domain.ReservedCartEntry
	err     error
	calls   int

	// afterList runs once, after the snapshot is taken and outside the lock
	afterList func()
}

func (r *mockReservationRepo) ListActiveReservations(_ context.Context, buyerID string, now time.Time) ([]domain.ReservedCartEntry, error) {
	r.m.Lock()
	r.calls++
	if r.err != nil {
		r.m.Unlock()
		return nil, r.err
	}
	var out []domain.ReservedCartEntry
	for _, e := range r.entries[buyerID] {
		if e.ExpiresAt.After(now) {
			out = append(out, e)
		}
	}
	hook := r.afterList
	r.afterList = nil
	r.m.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (r *mockReservationRepo) ExpireReservations(context.Context, time.Time) ([]domain.ReservedCartEntry, error) {
	return nil, nil
}

func (r *mockReservationRepo) CompleteReservations(context.Context, string, []string, time.Time) error {
	return nil
}
