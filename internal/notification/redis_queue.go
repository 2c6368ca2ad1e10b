package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPopTimeout = 5 * time.Second

// RedisQueue is a list-backed queue using LPUSH/BRPOP so that several worker
// processes can share one backlog.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

// NewRedisQueue builds a queue on key.
func NewRedisQueue(client *redis.Client, key string, logger zerolog.Logger) *RedisQueue {
	if key == "" {
		key = "arrivapp:notifications:queue"
	}
	return &RedisQueue{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "redis_queue").Logger(),
	}
}

// Publish pushes the JSON-encoded intent.
func (q *RedisQueue) Publish(ctx context.Context, intent Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume pops intents with BRPOP until ctx is cancelled.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Intent, error) {
	out := make(chan Intent)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, redis.Nil) {
					continue
				}
				q.logger.Warn().Err(err).Msg("redis queue pop failed")
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			if len(res) != 2 {
				continue
			}

			var intent Intent
			if err := json.Unmarshal([]byte(res[1]), &intent); err != nil {
				q.logger.Warn().Err(err).Msg("discarding malformed notification intent")
				continue
			}

			select {
			case out <- intent:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
