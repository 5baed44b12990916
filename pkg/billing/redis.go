package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock key only when it still holds our token,
// so an expired lock re-acquired by another instance is never released by us.
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes transitions across service instances with a Redis
// SET NX lock.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
}

// NewRedisLocker creates a distributed locker. Non-positive durations fall
// back to a 30s lock TTL and a 50ms polling interval.
func NewRedisLocker(client *redis.Client, ttl, retryInterval time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		prefix:        "billing:lock:",
	}
}

// Lock polls SET NX until the lock is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Join(ErrLockUnavailable, err)
		}
		if ok {
			return func() {
				// Best effort: the TTL reclaims the lock if the release fails.
				_ = releaseLockScript.Run(context.WithoutCancel(ctx), l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockUnavailable, ctx.Err())
		case <-time.After(l.retryInterval):
		}
	}
}

// RedisDeduper drops webhook deliveries that were already processed, keyed by
// a digest of the raw payload. Iugu retries deliveries on non-2xx responses
// and may redeliver on timeouts; the first successfully handled delivery wins
// within the TTL. Deliveries are marked through Mark after processing, so a
// failed delivery is never counted as seen.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDeduper creates a webhook deduplicator. A non-positive TTL falls
// back to 24h, covering the gateway's retry window.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{
		client: client,
		ttl:    ttl,
		prefix: "billing:webhook:",
	}
}

// Seen reports whether the key was already processed. It does not record
// anything.
func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key as processed for the deduplication TTL.
func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	return d.client.Set(ctx, d.prefix+key, 1, d.ttl).Err()
}
