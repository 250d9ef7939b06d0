package lock

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed lua/release.lua
var luaRelease string

// Redis is a Locker shared by every instance of the service. A lock is a
// key holding the owner's token with a lease, so a crashed holder frees the
// wallet after ttl.
type Redis struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	maxWait time.Duration
	poll    time.Duration
	prefix  string
	scrRel  *redis.Script
}

func NewRedis(rdb redis.UniversalClient, ttl, maxWait time.Duration) *Redis {
	l := &Redis{
		rdb:     rdb,
		ttl:     ttl,
		maxWait: maxWait,
		poll:    20 * time.Millisecond,
		prefix:  "lock:",
		scrRel:  redis.NewScript(luaRelease),
	}
	// preload script (best-effort); Run falls back to EVAL
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = l.scrRel.Load(ctx, rdb).Err()
	}()
	return l
}

func (l *Redis) key(k string) string { return l.prefix + "{" + k + "}" }

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := l.key(key)
	deadline := time.Now().Add(l.maxWait)

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}

	return func() {
		// Release with a fresh context so a cancelled request still frees the wallet.
		relCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.scrRel.Run(relCtx, l.rdb, []string{redisKey}, token).Err()
	}, nil
}
