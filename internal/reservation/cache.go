package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache holds each buyer's active reservations in redis.
type Cache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewCache(client *redis.Client, baseTTL time.Duration) *Cache {
	if baseTTL <= 0 {
		baseTTL = time.Minute
	}
	return &Cache{client: client, baseTTL: baseTTL}
}

func (c *Cache) Get(ctx context.Context, buyerID string) ([]domain.ReservedCartEntry, error) {
	data, err := c.client.Get(ctx, cacheKey(buyerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entries []domain.ReservedCartEntry
	if err2 := json.Unmarshal(data, &entries); err2 != nil {
		return nil, fmt.Errorf("unmarshal reservations failed: %w", err2)
	}
	return entries, nil
}

// genTTL bounds how long an idle buyer's generation counter lingers.
const genTTL = 24 * time.Hour

// setIfGeneration writes the payload only when no invalidation happened since gen was read.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if not gen then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Generation is read before loading from the database and handed back to Set.
func (c *Cache) Generation(ctx context.Context, buyerID string) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(buyerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set stores entries unless the buyer was invalidated after gen was read.
// It reports whether the write happened.
func (c *Cache) Set(ctx context.Context, buyerID string, gen int64, entries []domain.ReservedCartEntry) (bool, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return false, fmt.Errorf("marshal reservations failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(c.baseTTL/4) + 1))
	ttl := c.baseTTL + jitter
	written, err := setIfGeneration.Run(ctx, c.client,
		[]string{cacheKey(buyerID), genKey(buyerID)},
		strconv.FormatInt(gen, 10), data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis set failed: %w", err)
	}
	return written == 1, nil
}

// Invalidate bumps the buyer's generation and drops the cached reservations,
// so a read that started earlier cannot put its snapshot back.
func (c *Cache) Invalidate(ctx context.Context, buyerID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(buyerID))
		pipe.Expire(ctx, genKey(buyerID), genTTL)
		pipe.Del(ctx, cacheKey(buyerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func cacheKey(buyerID string) string {
	return fmt.Sprintf("reservations:%s", buyerID)
}

func genKey(buyerID string) string {
	return fmt.Sprintf("reservations:gen:%s", buyerID)
}
