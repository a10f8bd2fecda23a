package locks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX, shared across nodes.
type Redis struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedis(rdb goredis.UniversalClient, prefix string) (*Redis, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "groupcart:lock:"
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	full := r.prefix + key
	ok, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{rdb: r.rdb, key: full, token: token}, nil
}

type redisLease struct {
	rdb   goredis.UniversalClient
	key   string
	token string
	once  sync.Once
	err   error
}

func (l *redisLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
	})
	return l.err
}
