package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPendingTTL bounds how long a created provider order can wait for capture.
const DefaultPendingTTL = 3 * time.Hour

// PendingOrder remembers what a provider order was created for until it is captured.
type PendingOrder struct {
	OrderID    string    `json:"order_id"`
	BuyerID    string    `json:"buyer_id"`
	ListingIDs []string  `json:"listing_ids"`
	Total      float64   `json:"total"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

type PendingOrders interface {
	Save(ctx context.Context, order PendingOrder) error
	Get(ctx context.Context, orderID string) (*PendingOrder, error)
	Delete(ctx context.Context, orderID string) error
}

type MemoryPendingOrders struct {
	mu     sync.Mutex
	orders map[string]PendingOrder
}

func NewMemoryPendingOrders() *MemoryPendingOrders {
	return &MemoryPendingOrders{orders: make(map[string]PendingOrder)}
}

func (m *MemoryPendingOrders) Save(_ context.Context, order PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderID] = order
	return nil
}

func (m *MemoryPendingOrders) Get(_ context.Context, orderID string) (*PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (m *MemoryPendingOrders) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
	return nil
}

type RedisPendingOrders struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPendingOrders(client *redis.Client, ttl time.Duration) *RedisPendingOrders {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &RedisPendingOrders{client: client, ttl: ttl}
}

func (r *RedisPendingOrders) Save(ctx context.Context, order PendingOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal pending order failed: %w", err)
	}
	if err := r.client.Set(ctx, pendingKey(order.OrderID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisPendingOrders) Get(ctx context.Context, orderID string) (*PendingOrder, error) {
	data, err := r.client.Get(ctx, pendingKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order PendingOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal pending order failed: %w", err)
	}
	return &order, nil
}

func (r *RedisPendingOrders) Delete(ctx context.Context, orderID string) error {
	if err := r.client.Del(ctx, pendingKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func pendingKey(orderID string) string {
	return "checkout:pending:" + orderID
}
