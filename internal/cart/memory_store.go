package cart

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CleanupInterval is how often idle namespaces are swept.
const CleanupInterval = time.Minute

type namespace struct {
	order   []string
	items   map[string]domain.CartItem
	touched time.Time
}

// MemoryStore implements LocalStore in process. Namespaces idle longer than idleTTL are dropped.
type MemoryStore struct {
	mu      sync.RWMutex
	spaces  map[string]*namespace
	idleTTL time.Duration

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewMemoryStore creates a store; idleTTL <= 0 keeps namespaces forever.
func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	s := &MemoryStore{
		spaces:      make(map[string]*namespace),
		idleTTL:     idleTTL,
		stopCleanup: make(chan struct{}),
	}
	if idleTTL > 0 {
		s.wg.Add(1)
		go s.cleanupLoop()
	}
	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.dropIdle(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) dropIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, ns := range s.spaces {
		if now.Sub(ns.touched) > s.idleTTL {
			delete(s.spaces, key)
		}
	}
}

func (s *MemoryStore) Add(_ context.Context, ns string, item domain.CartItem) (bool, error) {
	item, err := sanitize(item)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	space, ok := s.spaces[ns]
	if !ok {
		space = &namespace{items: make(map[string]domain.CartItem)}
		s.spaces[ns] = space
	}
	space.touched = time.Now()
	if _, exists := space.items[item.ID]; exists {
		return false, nil
	}
	space.items[item.ID] = item
	space.order = append(space.order, item.ID)
	return true, nil
}

func (s *MemoryStore) Remove(ctx context.Context, ns, id string, lock LockChecker) (bool, error) {
	if err := checkLock(ctx, lock, id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	space, ok := s.spaces[ns]
	if !ok {
		return false, nil
	}
	space.touched = time.Now()
	if _, exists := space.items[id]; !exists {
		return false, nil
	}
	delete(space.items, id)
	for i, v := range space.order {
		if v == id {
			space.order = append(space.order[:i:i], space.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, ns string) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.spaces[ns]
	if !ok {
		return []domain.CartItem{}, nil
	}
	items := make([]domain.CartItem, 0, len(space.order))
	for _, id := range space.order {
		items = append(items, space.items[id])
	}
	return items, nil
}

func (s *MemoryStore) Contains(_ context.Context, ns, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.spaces[ns]
	if !ok {
		return false, nil
	}
	_, exists := space.items[id]
	return exists, nil
}

// Close stops the cleanup loop.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	s.wg.Wait()
	return nil
}
