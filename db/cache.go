package db

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Delete-if-owner, so a lock that expired and was taken by someone else is not released by the old owner
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire a processing lock with SET NX. Returns false if someone else holds it
func (queries *Queries) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return queries.Cache.SetNX(ctx, "lock:"+key, owner, ttl).Result()
}

// Release a lock held by owner. Releasing a lock that is gone or owned by someone else is a no-op
func (queries *Queries) ReleaseLock(ctx context.Context, key, owner string) error {
	err := releaseLockScript.Run(ctx, queries.Cache, []string{"lock:" + key}, owner).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
