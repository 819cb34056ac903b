package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour

	// pendingMarker holds a key while its todo is being created. Todo ids are
	// ObjectID hex strings, so it never collides with a real id.
	pendingMarker = "pending"
)

// reclaimScript swaps a stale todo id for a new reservation only if the key
// still holds that id.
var reclaimScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// releaseScript deletes the key only while it is still a reservation.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyStore maps a client-supplied Idempotency-Key to the todo it created.
// Key format: idempotency:todo:<owner_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl uses 24h.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims (ownerID, key) with SETNX. When the key is taken it returns
// the remembered todo id, or "" while the other creation is in flight.
func (s *IdempotencyStore) Reserve(ctx context.Context, ownerID, key string) (string, bool, error) {
	k := s.key(ownerID, key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return "", true, nil
	}

	id, err := s.client.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Expired between SETNX and GET; report it as in flight and let the client retry.
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	case id == pendingMarker:
		return "", false, nil
	}
	return id, false, nil
}

// Reclaim re-reserves a key whose todo no longer exists.
func (s *IdempotencyStore) Reclaim(ctx context.Context, ownerID, key, staleID string) (bool, error) {
	n, err := reclaimScript.Run(ctx, s.client, []string{s.key(ownerID, key)},
		staleID, pendingMarker, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("idempotency reclaim: %w", err)
	}
	return n == 1, nil
}

// Remember records todoID for (ownerID, key), replacing the reservation.
func (s *IdempotencyStore) Remember(ctx context.Context, ownerID, key, todoID string) error {
	if err := s.client.Set(ctx, s.key(ownerID, key), todoID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release frees a reservation so the client can retry after a failed creation.
func (s *IdempotencyStore) Release(ctx context.Context, ownerID, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(ownerID, key)}, pendingMarker).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(ownerID, key string) string {
	return fmt.Sprintf("idempotency:todo:%s:%s", ownerID, key)
}
