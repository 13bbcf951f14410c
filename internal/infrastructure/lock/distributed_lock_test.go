package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps leases in a map and runs the release script's
// compare-and-delete itself. Unused Cmdable methods panic via the nil embed.
type fakeRedis struct {
	redis.Cmdable

	mu     sync.Mutex
	keys   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, held := f.keys[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if script != releaseScript || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected script call"))
	}
	if f.keys[keys[0]] != args[0] {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(f.keys, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func TestJobLock_SingleOwnerAndOwnedRelease(t *testing.T) {
	t.Parallel()
	rdb := newFakeRedis()
	ctx := context.Background()

	a := NewJobLock(rdb, "outbox-sender", "host-a", 30*time.Second)
	b := NewJobLock(rdb, "outbox-sender", "host-b", 30*time.Second)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "host-a", rdb.keys["vlake:job:outbox-sender"])
	assert.Equal(t, 30*time.Second, rdb.ttls["vlake:job:outbox-sender"])

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// b does not own the lease, so its release leaves it in place
	require.NoError(t, b.Unlock(ctx))
	assert.Equal(t, "host-a", rdb.keys["vlake:job:outbox-sender"])

	require.NoError(t, a.Unlock(ctx))
	assert.NotContains(t, rdb.keys, "vlake:job:outbox-sender")

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobLock_LeasesAreScopedByJob(t *testing.T) {
	t.Parallel()
	rdb := newFakeRedis()
	ctx := context.Background()

	ok, err := NewJobLock(rdb, "outbox-sender", "host-a", time.Second).TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewJobLock(rdb, "outbox-purge", "host-b", time.Second).TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLock_PropagatesRedisError(t *testing.T) {
	t.Parallel()
	rdb := newFakeRedis()
	rdb.setErr = errors.New("connection refused")

	ok, err := NewDistributedLock(rdb, "k", "me", time.Second).TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
