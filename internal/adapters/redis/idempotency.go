package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idemp:"

type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

// Get returns the stored value for key, or nil when nothing was stored.
func (i *Idempotency) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := i.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get idempotency key")
	}
	return val, nil
}

// Set stores value under key unless a value is already there; the first
// response recorded for a key wins.
func (i *Idempotency) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := i.client.SetNX(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "set idempotency key")
	}
	return nil
}
