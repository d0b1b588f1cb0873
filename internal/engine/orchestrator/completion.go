// internal/engine/orchestrator/completion.go
package orchestrator

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const completionKeyPrefix = "batch:complete:"

// RedisCompletionStore implements CompletionStore with a SETNX marker, so
// the first run to drain a batch wins the right to notify and every later
// drain is a no-op.
type RedisCompletionStore struct {
	client *redis.Client
}

func NewRedisCompletionStore(client *redis.Client) *RedisCompletionStore {
	return &RedisCompletionStore{client: client}
}

func (s *RedisCompletionStore) MarkComplete(ctx context.Context, batchID string) (bool, error) {
	return s.client.SetNX(ctx, completionKeyPrefix+batchID, time.Now().UTC().Format(time.RFC3339), 0).Result()
}
