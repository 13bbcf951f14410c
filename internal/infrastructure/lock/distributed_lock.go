package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis lease used to let a single instance run a periodic job per tick.
//
// Acquire: SET key owner NX PX ttl. Release: compare-and-delete in a Lua script
// so an instance whose lease already expired cannot drop someone else's.

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type DistributedLock struct {
	client     redis.Cmdable
	key        string
	owner      string
	expiration time.Duration
}

func NewDistributedLock(client redis.Cmdable, key, owner string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		owner:      owner,
		expiration: expiration,
	}
}

// TryLock is non-blocking. false means another owner holds the lease.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.expiration).Result()
}

// Unlock releases the lease only if this owner still holds it.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner).Err()
}

// NewJobLock names the lease for a background job, e.g. "vlake:job:outbox-sender".
func NewJobLock(client redis.Cmdable, job, owner string, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, "vlake:job:"+job, owner, expiration)
}
