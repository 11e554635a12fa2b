package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Options locates the Redis instance shared by sessions, the grant cache
// and the job queue.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and fails if the server does not answer a ping
// within five seconds.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := Check(client)(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// AsynqOpt returns the connection settings for the asynq client, worker and
// inspector, so jobs land on the same Redis as the grant cache.
func (o Options) AsynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

// Check returns a health probe for client.
func Check(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("platform/cache: ping: %w", err)
		}
		return nil
	}
}
