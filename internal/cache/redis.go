package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/medmarket/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 15 * time.Minute

// versionGrace keeps the version marker alive past any cart entry written
// under it.
const versionGrace = 5 * time.Minute

// KEYS[1] cart, KEYS[2] version; ARGV[1] payload, ARGV[2] version ms,
// ARGV[3] cart ttl ms, ARGV[4] marker ttl ms.
var setScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current and tonumber(ARGV[2]) < tonumber(current) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
if not current or tonumber(ARGV[2]) > tonumber(current) then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
end
return 1
`)

// KEYS[1] cart, KEYS[2] version; ARGV[1] version ms, ARGV[2] marker ttl ms.
var invalidateScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
local current = redis.call('GET', KEYS[2])
if not current or tonumber(ARGV[1]) > tonumber(current) then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
else
	redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = DefaultTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCache stores each cart as JSON next to a version marker holding the
// newest UpdatedAt (unix milliseconds) seen for that user.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return &cart, nil
}

// Set caches the cart unless a newer version was already cached or
// invalidated, in which case it returns ErrStaleCart.
func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// 0-4 minutes of jitter on top of the base TTL
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter

	keys := []string{cacheKey(userID), versionKey(userID)}
	stored, err := setScript.Run(ctx, r.client, keys,
		payload, cart.UpdatedAt.UnixMilli(), ttl.Milliseconds(), (ttl + versionGrace).Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stored == 0 {
		return ErrStaleCart
	}
	return nil
}

// Invalidate drops the cached cart and raises the version marker so that
// fills carrying an older cart are refused.
func (r *RedisCache) Invalidate(ctx context.Context, userID string, version time.Time) error {
	keys := []string{cacheKey(userID), versionKey(userID)}
	markerTTL := r.baseTTL + versionGrace
	if err := invalidateScript.Run(ctx, r.client, keys, version.UnixMilli(), markerTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func versionKey(userID string) string {
	return fmt.Sprintf("cart-version:%s", userID)
}
