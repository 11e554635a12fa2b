package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// CacheWarmer refills a cache. *grants.CachedStore implements it.
type CacheWarmer interface {
	Warm(ctx context.Context) error
}

// JobObserver records job outcomes. *observability.Metrics implements it.
type JobObserver interface {
	ObserveJob(taskType string, err error)
}

// GrantCacheWarmJob loads every role's grant set into Redis so the first
// checks after a grant change do not all miss the cache.
type GrantCacheWarmJob struct {
	Cache   CacheWarmer
	Logger  *slog.Logger
	Metrics JobObserver
}

// NewGrantCacheWarmJob wires dependencies for the warm handler.
func NewGrantCacheWarmJob(cache CacheWarmer, logger *slog.Logger, metrics JobObserver) *GrantCacheWarmJob {
	return &GrantCacheWarmJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes TaskGrantCacheWarm tasks.
func (j *GrantCacheWarmJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Cache == nil {
		return errors.New("grant cache warm: handler not configured")
	}
	var payload GrantCacheWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	defer func() {
		if j.Metrics != nil {
			j.Metrics.ObserveJob(TaskGrantCacheWarm, err)
		}
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	if err = j.Cache.Warm(ctx); err != nil {
		logger.Error("grant cache warm failed", slog.Any("error", err))
		return err
	}
	attrs := []any{slog.Duration("duration", time.Since(start))}
	if !payload.RequestedAt.IsZero() {
		attrs = append(attrs, slog.Duration("queue_delay", start.Sub(payload.RequestedAt)))
	}
	logger.Info("grant cache warmed", attrs...)
	return nil
}

func (j *GrantCacheWarmJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
