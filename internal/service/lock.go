package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrAccountBusy = errors.New("account already has a run in progress")

// AccountLocker serializes runs per account. TryLock never waits: it either
// returns a release func or ErrAccountBusy.
type AccountLocker interface {
	TryLock(ctx context.Context, ownerID int64) (func(), error)
}

type localLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewLocalLocker() AccountLocker {
	return &localLocker{locks: make(map[int64]*sync.Mutex)}
}

func (l *localLocker) TryLock(_ context.Context, ownerID int64) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrAccountBusy
	}

	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisLocker shares account locks across processes. The TTL must outlast
// the longest run, asset wait included.
func NewRedisLocker(rc *redis.Client, ttl time.Duration) AccountLocker {
	return &redisLocker{rc: rc, ttl: ttl}
}

func AccountLockKey(ownerID int64) string {
	return fmt.Sprintf("autopost:lock:account:%d", ownerID)
}

func (l *redisLocker) TryLock(ctx context.Context, ownerID int64) (func(), error) {
	key := AccountLockKey(ownerID)
	token := uuid.NewString()

	ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire account lock: %w", err)
	}
	if !ok {
		return nil, ErrAccountBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the run context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rc, []string{key}, token).Err(); err != nil {
				slog.Warn("release account lock failed", "owner_id", ownerID, "error", err)
			}
		})
	}, nil
}
