package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const syncLockKey = "agencylens:lock:sync"

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// RunGuard admits one sync pass at a time. Acquire returns ok=false while
// another pass holds the guard.
type RunGuard interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// LocalGuard serializes runs inside this process
type LocalGuard struct {
	mu sync.Mutex
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) Acquire(context.Context) (func(), bool, error) {
	if !g.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(g.mu.Unlock) }, true, nil
}

// RedisGuard serializes runs across replicas with a SET NX lock. The TTL
// frees the lock if the holder dies mid-run.
type RedisGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, syncLockKey, token, g.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.rdb.Eval(ctx, unlockScript, []string{syncLockKey}, token).Err(); err != nil {
				g.logger.Warn("Failed to release sync lock", zap.Error(err))
			}
		})
	}
	return release, true, nil
}
