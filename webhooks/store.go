// Package webhooks holds the processed-event stores backing webhook
// idempotency. The Redis store is shared across server instances; the
// in-memory store serves tests and single-node development.
package webhooks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// MarkProcessed claims the event id with SET NX. The first caller gets true;
// redeliveries within the TTL get false. Gateways stop retrying long before
// the TTL expires, so an expired key re-admitting an event is harmless: the
// reconciler's terminal-status guard still drops it.
func (s *RedisStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.client.SetNX(ctx, "webhook:event:"+eventID, 1, s.ttl).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: map[string]struct{}{}}
}

func (s *MemoryStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = struct{}{}
	return true, nil
}
