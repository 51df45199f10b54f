// internal/services/locker.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultLockTTL bounds how long a crashed holder can block an entity. A live
// holder renews its lease, so work may run longer than this.
const DefaultLockTTL = 2 * time.Minute

var (
	// ErrLockHeld means another operation holds the key.
	ErrLockHeld = errors.New("lock is held by another operation")
	// ErrLockLost means the lease expired and the key moved on.
	ErrLockLost = errors.New("lock lease was lost")
)

// Locker serializes mutating operations per entity. Acquire never blocks on
// contention; it returns ErrLockHeld instead.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	// Extend pushes the expiry to ttl from now.
	Extend(ctx context.Context, ttl time.Duration) error
	// Release is safe to call more than once.
	Release()
}

var lockSubjects = map[string]string{
	"scraped": "scraped product",
}

func lockKey(kind string, id uuid.UUID) string {
	return fmt.Sprintf("lock:%s:%s", kind, id)
}

// withLock runs fn under lock:<kind>:<id>. Contention becomes a
// *StateConflictError.
func withLock(ctx context.Context, locker Locker, kind string, id uuid.UUID, fn func() error) error {
	return withLockTTL(ctx, locker, kind, id, DefaultLockTTL, fn)
}

// withLockTTL renews the lease every ttl/3 until fn returns.
func withLockTTL(ctx context.Context, locker Locker, kind string, id uuid.UUID, ttl time.Duration, fn func() error) error {
	key := lockKey(kind, id)
	lease, err := locker.Acquire(ctx, key, ttl)
	if errors.Is(err, ErrLockHeld) {
		return &StateConflictError{Kind: lockSubjects[kind], ID: id, Reason: "another operation is in progress"}
	}
	if err != nil {
		return err
	}
	defer lease.Release()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := lease.Extend(context.Background(), ttl); err != nil {
					logrus.WithError(err).WithField("key", key).Warn("Failed to extend lock")
					if errors.Is(err, ErrLockLost) {
						return
					}
				}
			}
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	return fn()
}

// RedisLocker holds locks as SET NX PX keys carrying a random token.
type RedisLocker struct {
	client *redis.Client
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// extendScript moves the expiry only if the key still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
	once   sync.Once
}

func (l *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

func (l *redisLease) Release() {
	l.once.Do(func() {
		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
			logrus.WithError(err).WithField("key", l.key).Warn("Failed to release lock")
		}
	})
}

// LocalLocker is the single-process fallback when Redis is disabled.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrLockHeld
	}
	expires := now.Add(ttl)
	l.held[key] = expires
	return &localLease{locker: l, key: key, expires: expires}, nil
}

type localLease struct {
	locker  *LocalLocker
	key     string
	expires time.Time // guarded by locker.mu
	once    sync.Once
}

func (l *localLease) Extend(ctx context.Context, ttl time.Duration) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	now := time.Now()
	if l.locker.held[l.key] != l.expires || !now.Before(l.expires) {
		return ErrLockLost
	}
	l.expires = now.Add(ttl)
	l.locker.held[l.key] = l.expires
	return nil
}

func (l *localLease) Release() {
	l.once.Do(func() {
		l.locker.mu.Lock()
		defer l.locker.mu.Unlock()
		if l.locker.held[l.key] == l.expires {
			delete(l.locker.held, l.key)
		}
	})
}
