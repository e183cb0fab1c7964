// Package lock provides named mutual exclusion across workers.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// Release gives the lock back
type Release func(ctx context.Context) error

// Locker obtains an exclusive lock on key, waiting until ctx is done
type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

// RedisLocker uses the Redlock algorithm over a single Redis deployment
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
}

// NewRedisLocker creates a locker whose locks expire after expiry if never released
func NewRedisLocker(client *goredislib.Client, expiry time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		tries:  32,
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (Release, error) {
	m := l.rs.NewMutex("lock:"+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
	)
	if err := m.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, errs.Unavailable(ctx.Err(), "timed out waiting for lock %s", key)
		}
		e := errs.Conflict("%s is busy, try again", key)
		e.Err = err
		return nil, e
	}
	return func(ctx context.Context) error {
		if _, err := m.UnlockContext(ctx); err != nil {
			return errs.Wrap(err, "failed to release lock %s", key)
		}
		return nil
	}, nil
}

// LocalLocker serialises callers within one process. Used by the memory store deployment and tests.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]chan struct{})}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func(context.Context) error {
			once.Do(func() { <-ch })
			return nil
		}, nil
	case <-ctx.Done():
		return nil, errs.Unavailable(ctx.Err(), "timed out waiting for lock %s", key)
	}
}
