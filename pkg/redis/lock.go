package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockOwned deletes the lock only while it still carries the caller's token.
var unlockOwned = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock claims name for ttl. acquired is false while another holder owns it.
// The returned unlock only releases a lock this call took, so a holder whose
// ttl lapsed cannot drop someone else's claim.
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error) {
	if err := c.ready(); err != nil {
		return nil, false, err
	}
	key := c.keys.lock(name)
	token := uuid.NewString()
	ok, err := c.cmd.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func(ctx context.Context) error {
		return unlockOwned.Run(ctx, c.cmd, []string{key}, token).Err()
	}, true, nil
}
