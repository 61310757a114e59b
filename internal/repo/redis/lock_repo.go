package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// LockRepo implements best-effort distributed locks used to serialize
// per-user money flows across API replicas. The row-level FOR UPDATE
// locks in Postgres remain the hard guarantee.
type LockRepo struct {
	client *goredis.Client
}

func NewLockRepo(client *goredis.Client) *LockRepo {
	return &LockRepo{client: client}
}

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Acquire takes the named lock for ttl and returns an owner token that
// must be passed back to Release.
func (r *LockRepo) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	if name == "" || ttl <= 0 {
		return "", fmt.Errorf("invalid lock payload")
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %q: %w", name, err)
	}
	if !ok {
		return "", ErrLockNotAcquired
	}

	return token, nil
}

func (r *LockRepo) Release(ctx context.Context, name, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if name == "" || token == "" {
		return fmt.Errorf("invalid lock release payload")
	}

	if err := releaseScript.Run(ctx, r.client, []string{lockKey(name)}, token).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("release lock %q: %w", name, err)
	}

	return nil
}
