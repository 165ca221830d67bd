package rediscache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Продлеваем и отпускаем lease только своим токеном, чтобы не снять чужую блокировку.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Lease is a single-holder lock with expiry, used so that only one sweeper replica runs a pass.
type Lease struct {
	c     *redis.Client
	key   string
	token string
	ttl   time.Duration
}

func NewLease(addr, key string, ttl time.Duration) *Lease {
	return &Lease{
		c:     redis.NewClient(&redis.Options{Addr: addr}),
		key:   key,
		token: uuid.NewString(),
		ttl:   ttl,
	}
}

// Acquire takes the lease with SET NX PX or renews it when this holder already owns it.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.c.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis lease setnx")
	}
	if ok {
		return true, nil
	}

	n, err := renewScript.Run(ctx, l.c, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, "redis lease renew")
	}
	return n == 1, nil
}

func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.c, []string{l.key}, l.token).Err(); err != nil {
		return errors.Wrap(err, "redis lease release")
	}
	return nil
}

func (l *Lease) Close() error {
	return l.c.Close()
}
