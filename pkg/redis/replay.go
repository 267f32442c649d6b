package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayPending = "\x00pending"

// ErrReplayInFlight means an earlier request with the same key has not finished.
var ErrReplayInFlight = errors.New("request with this idempotency key is still in progress")

// ClaimReplay reserves scope for a new request. An empty result means the caller
// owns the scope and must later Complete or Abandon it; otherwise the stored
// response payload is returned.
func (c *Client) ClaimReplay(ctx context.Context, scope string, ttl time.Duration) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	key := c.keys.replay(scope)
	claimed, err := c.cmd.SetNX(ctx, key, replayPending, ttl).Result()
	if err != nil {
		return "", err
	}
	if claimed {
		return "", nil
	}
	stored, err := c.cmd.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil), stored == replayPending:
		return "", ErrReplayInFlight
	case err != nil:
		return "", err
	}
	return stored, nil
}

// CompleteReplay stores the finished response for scope.
func (c *Client) CompleteReplay(ctx context.Context, scope, payload string, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Set(ctx, c.keys.replay(scope), payload, ttl).Err()
}

// AbandonReplay frees scope so a retry runs the request again.
func (c *Client) AbandonReplay(ctx context.Context, scope string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Del(ctx, c.keys.replay(scope)).Err()
}
