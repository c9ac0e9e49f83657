package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a redis-backed first-writer-wins guard. Seen reports whether the
// key was already claimed; the first caller claims it for the TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// MessageKey identifies a consumed kafka message.
func (s *Store) MessageKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// RequestKey identifies a client-supplied HTTP idempotency key.
func (s *Store) RequestKey(userID, key string) string {
	return fmt.Sprintf("idem:http:%s:%s", userID, key)
}

func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// Forget releases a claimed key so the operation may be retried, used when
// the guarded work fails after the claim.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
