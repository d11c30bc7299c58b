package reconcile

import (
	"context"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/util"
	"github.com/redis/go-redis/v9"
)

// Locker grants per-message mutual exclusion. ok is false when another
// holder owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, prefix: "lock:reconcile:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	k := l.prefix + key
	token := util.NewID()

	ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}

	release := func() {
		// the caller's ctx may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{k}, token).Err()
	}
	return release, true, nil
}
