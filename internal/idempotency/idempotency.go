// Package idempotency records the first response to a keyed request so a
// retried request gets the same answer instead of being executed again.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// MinKeyLength is the shortest Idempotency-Key accepted.
const MinKeyLength = 16

var (
	ErrInvalidKey = errors.New("invalid Idempotency-Key")
	ErrKeyReused  = errors.New("Idempotency-Key reused with a different request")
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Response is the first answer given to a key. Fingerprint identifies the
// request that produced it so a key reused for another request is refused.
type Response struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	Result      []byte `json:"result"`
}

func (r *Response) Matches(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}

func ValidateKey(key string) error {
	if len(key) < MinKeyLength {
		return ErrInvalidKey
	}
	return nil
}

// Keys are scoped per caller so two users cannot replay each other's responses.
func scoped(scope, key string) string {
	return scope + ":" + key
}

func (i *Idempotency) Get(ctx context.Context, scope, key string) (*Response, error) {
	raw, err := i.store.Get(ctx, scoped(scope, key))
	if err != nil || raw == nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "decode stored response")
	}
	return &resp, nil
}

func (i *Idempotency) Set(ctx context.Context, scope, key string, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	return i.store.Set(ctx, scoped(scope, key), raw, i.ttl)
}
