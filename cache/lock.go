package cache

import (
	"context"
	"fmt"
	"time"

	"wingman/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// unlockScript deletes the key only while it still holds our token, so an
// expired holder cannot release a lock someone else has since taken.
const unlockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker is a SET NX lock with a TTL, used to serialize market resolution
// across API replicas
type Locker struct {
	rdb    *redis.Client
	unlock *redis.Script
}

func NewLocker(c *Client) *Locker {
	return &Locker{
		rdb:    c.rdb,
		unlock: redis.NewScript(unlockScript),
	}
}

func lockKey(key string) string {
	return "wingman:lock:" + key
}

// Acquire takes the lock or returns service.ErrLockHeld. The returned release
// function may be called more than once.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := lockKey(key)

	ok, err := l.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrLockHeld, key)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.unlock.Run(releaseCtx, l.rdb, []string{k}, token).Err(); err != nil {
			log.WithError(err).WithField("key", key).Warn("Failed to release lock")
		}
	}

	return release, nil
}

var _ service.Locker = (*Locker)(nil)
