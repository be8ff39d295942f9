package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/smartalerte/smartalerte/internal/errors"
)

// PairLocker serialises the read-then-write evaluation of one (alert, product) pair.
type PairLocker interface {
	// Lock blocks until the pair is held or ctx is done. The returned
	// function releases the pair and is safe to call once.
	Lock(ctx context.Context, alertID, productID uint) (func(), error)
}

type pairKey struct {
	alertID   uint
	productID uint
}

type pairSlot struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Slots are dropped once no
// goroutine holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[pairKey]*pairSlot
}

// NewLocalLocker creates a LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[pairKey]*pairSlot)}
}

func (l *LocalLocker) Lock(ctx context.Context, alertID, productID uint) (func(), error) {
	key := pairKey{alertID: alertID, productID: productID}

	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &pairSlot{sem: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.sem
			l.release(key, slot)
		})
	}, nil
}

func (l *LocalLocker) release(key pairKey, slot *pairSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// held reports the number of live slots; used by tests.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

const (
	redisLockPrefix       = "smartalerte:lock:pair:"
	redisLockPollInterval = 50 * time.Millisecond
)

// unlockScript deletes the key only when it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds pair locks as Redis keys set with NX and a TTL, so
// several service instances can share one database.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker creates a RedisLocker. A non-positive ttl defaults to 30s.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, alertID, productID uint) (func(), error) {
	key := fmt.Sprintf("%s%d:%d", redisLockPrefix, alertID, productID)
	token := uuid.NewString()

	ticker := time.NewTicker(redisLockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryNetwork).
				Context("operation", "acquire_pair_lock").
				Context("key", key).
				Build()
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release with a fresh context so a cancelled caller still frees the key.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}
