//go:build integration

package alerting

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/testutil/containers"
)

func startRedis(t *testing.T) *containers.RedisContainer {
	t.Helper()
	rc, err := containers.NewRedisContainer(t.Context(), "")
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })
	return rc
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	rc := startRedis(t)
	client := rc.NewClient()
	t.Cleanup(func() { _ = client.Close() })

	// Two lockers model two service instances sharing Redis.
	lockers := []*RedisLocker{NewRedisLocker(client, 5*time.Second), NewRedisLocker(client, 5*time.Second)}
	var inside, overlaps atomic.Int32

	var wg sync.WaitGroup
	for i := range 10 {
		l := lockers[i%2]
		wg.Go(func() {
			unlock, err := l.Lock(t.Context(), 7, 9)
			if !assert.NoError(t, err) {
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)
			unlock()
		})
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
	exists, err := client.Exists(t.Context(), redisLockPrefix+"7:9").Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "lock key released")
}

func TestRedisLocker_ExpiredLockIsNotReleasedByStaleHolder(t *testing.T) {
	rc := startRedis(t)
	client := rc.NewClient()
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, 200*time.Millisecond)
	staleUnlock, err := l.Lock(t.Context(), 1, 1)
	require.NoError(t, err)

	// Let the first lease lapse and a second holder take over.
	time.Sleep(300 * time.Millisecond)
	unlock, err := l.Lock(t.Context(), 1, 1)
	require.NoError(t, err)

	staleUnlock()
	exists, err := client.Exists(t.Context(), redisLockPrefix+"1:1").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists, "stale holder must not delete the new lease")
	unlock()
}

func TestRedisLocker_ContextCancel(t *testing.T) {
	rc := startRedis(t)
	client := rc.NewClient()
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, 10*time.Second)
	unlock, err := l.Lock(t.Context(), 2, 3)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(t.Context(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, 2, 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInitialize_RedisLockBackend(t *testing.T) {
	rc := startRedis(t)

	settings := &conf.Settings{}
	settings.Alerting.LockBackend = conf.LockBackendRedis
	settings.Redis.Addr = rc.Addr()

	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 1, 5)
	env.createAlert(t, owner, nil)

	rt, err := Initialize(t.Context(), Options{Settings: settings, DB: env.db, Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	result, err := rt.Engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)
}
