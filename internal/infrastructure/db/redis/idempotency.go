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

	// pendingMarker holds a claimed key until the task id is known. It
	// expires quickly so a crashed request does not block the key for a day.
	pendingMarker = "pending"
	pendingTTL    = 30 * time.Second

	claimAttempts = 3
)

// IdempotencyStore maps a client-supplied Idempotency-Key to the task it
// created. Keys are scoped per owner.
// Key format: idem:task:<owner_id>:<key>
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

// Claim reserves the key with SetNX. A losing caller gets the recorded task
// id, or "" while the winner has not finished.
func (s *IdempotencyStore) Claim(ctx context.Context, ownerID, key string) (string, bool, error) {
	k := s.key(ownerID, key)
	for range claimAttempts {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, pendingTTL).Result()
		if err != nil {
			return "", false, fmt.Errorf("idempotency claim: %w", err)
		}
		if ok {
			return "", true, nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// Expired or released between the two calls.
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if val == pendingMarker {
			return "", false, nil
		}
		return val, false, nil
	}
	return "", false, nil
}

// Remember records taskID for a claimed key with the full TTL.
func (s *IdempotencyStore) Remember(ctx context.Context, ownerID, key, taskID string) error {
	if err := s.client.Set(ctx, s.key(ownerID, key), taskID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release drops a claimed key whose request failed, so a retry can proceed.
func (s *IdempotencyStore) Release(ctx context.Context, ownerID, key string) error {
	if err := s.client.Del(ctx, s.key(ownerID, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(ownerID, key string) string {
	return fmt.Sprintf("idem:task:%s:%s", ownerID, key)
}
