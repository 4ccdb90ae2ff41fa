package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrNotAcquired 锁已被其他进程持有
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript 只释放自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 Redis SET NX 的互斥锁
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Lock 已持有的锁
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire 尝试加锁，不等待
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// Release 释放锁；锁已过期或被他人持有时不做任何事
func (lk *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err()
}
