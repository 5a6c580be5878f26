package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultLocalCartTTL matches how long a browser keeps an untouched cart.
const DefaultLocalCartTTL = 30 * 24 * time.Hour

// KEYS: items hash, order list. ARGV: id, json, ttl ms.
var addScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  redis.call('RPUSH', KEYS[2], ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  redis.call('PEXPIRE', KEYS[2], ARGV[3])
  return 1
end
return 0
`)

// KEYS: items hash, order list. ARGV: id.
var removeScript = redis.NewScript(`
if redis.call('HDEL', KEYS[1], ARGV[1]) == 1 then
  redis.call('LREM', KEYS[2], 0, ARGV[1])
  return 1
end
return 0
`)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultLocalCartTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Add(ctx context.Context, ns string, item domain.CartItem) (bool, error) {
	item, err := sanitize(item)
	if err != nil {
		return false, err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("marshal cart item failed: %w", err)
	}

	itemsKey, orderKey := keys(ns)
	added, err := addScript.Run(ctx, r.client, []string{itemsKey, orderKey},
		item.ID, string(data), r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis add failed: %w", err)
	}
	return added == 1, nil
}

func (r *RedisStore) Remove(ctx context.Context, ns, id string, lock LockChecker) (bool, error) {
	if err := checkLock(ctx, lock, id); err != nil {
		return false, err
	}

	itemsKey, orderKey := keys(ns)
	removed, err := removeScript.Run(ctx, r.client, []string{itemsKey, orderKey}, id).Int()
	if err != nil {
		return false, fmt.Errorf("redis remove failed: %w", err)
	}
	return removed == 1, nil
}

func (r *RedisStore) List(ctx context.Context, ns string) ([]domain.CartItem, error) {
	itemsKey, orderKey := keys(ns)

	ids, err := r.client.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	items := make([]domain.CartItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	values, err := r.client.HMGet(ctx, itemsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget failed: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// order entry without a hash field: the hash expired first
			continue
		}
		var item domain.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("unmarshal cart item %s failed: %w", ids[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *RedisStore) Contains(ctx context.Context, ns, id string) (bool, error) {
	itemsKey, _ := keys(ns)
	ok, err := r.client.HExists(ctx, itemsKey, id).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("redis hexists failed: %w", err)
	}
	return ok, nil
}

// Close is a no-op; the client is owned by the caller.
func (r *RedisStore) Close() error {
	return nil
}

func keys(ns string) (items, order string) {
	return fmt.Sprintf("cart:local:{%s}:items", ns), fmt.Sprintf("cart:local:{%s}:order", ns)
}
