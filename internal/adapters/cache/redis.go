package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisBlacklistCache fronts the blacklist repository so the sync engine's
// per-message check stays a single key lookup.
type RedisBlacklistCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBlacklistCache(client *redis.Client, ttl time.Duration) *RedisBlacklistCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisBlacklistCache{client: client, ttl: ttl}
}

func blacklistKey(teamID, address string) string {
	return "courier:blacklist:" + teamID + ":" + address
}

func (c *RedisBlacklistCache) Get(ctx context.Context, teamID, normalizedAddress string) (bool, bool, error) {
	val, err := c.client.Get(ctx, blacklistKey(teamID, normalizedAddress)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisBlacklistCache) Set(ctx context.Context, teamID, normalizedAddress string, blocked bool) error {
	val := "0"
	if blocked {
		val = "1"
	}
	return c.client.Set(ctx, blacklistKey(teamID, normalizedAddress), val, c.ttl).Err()
}

// RedisSyncLockStore serializes syncs per connection id with SET NX. The TTL
// bounds the damage of a crashed holder; release only deletes the lock when
// this holder's token still owns it.
type RedisSyncLockStore struct {
	client *redis.Client
}

func NewRedisSyncLockStore(client *redis.Client) *RedisSyncLockStore {
	return &RedisSyncLockStore{client: client}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (s *RedisSyncLockStore) TryAcquire(ctx context.Context, connectionID string, ttl time.Duration) (func(), bool, error) {
	key := "courier:synclock:" + connectionID
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, s.client, []string{key}, token).Err()
	}
	return release, true, nil
}
