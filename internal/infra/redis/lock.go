// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Locker guards jobs that must not run on two instances at once, such as the
// payout batch.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var ErrLockHeld = errors.New("lock is held elsewhere")

type RedisLocker struct {
	cli RedisClient
}

func NewLocker(cli RedisClient) *RedisLocker {
	return &RedisLocker{cli: cli}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, key, token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

const luaUnlock = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// Unlock releases only if the token still matches, so an expired lock taken
// over by another instance is never released by the first holder.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.Eval(ctx, luaUnlock, []string{key}, token)
	return err
}
