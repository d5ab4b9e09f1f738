package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is where failure reports land unless configured otherwise.
const DefaultStream = "stream:price_failures"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// RedisSink appends one stream entry per failed product plus a summary.
type RedisSink struct {
	redis  RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewRedisSink(client RedisClient, stream string, maxLen int64, logger *slog.Logger) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{
		redis:  client,
		stream: stream,
		maxLen: maxLen,
		logger: logger.With("component", "redis_report"),
	}
}

func (s *RedisSink) Publish(ctx context.Context, r Report) error {
	date := models.FormatDate(r.Date)

	for _, f := range r.Failures {
		err := s.add(ctx, map[string]interface{}{
			"type":         "entry_failed",
			"run_id":       r.RunID,
			"date":         date,
			"brand":        f.Brand,
			"product_name": f.ProductName,
			"reason":       string(f.Reason),
			"message":      f.Message,
		})
		if err != nil {
			return err
		}
	}

	err := s.add(ctx, map[string]interface{}{
		"type":      "run_summary",
		"run_id":    r.RunID,
		"date":      date,
		"total":     r.Total,
		"succeeded": r.Succeeded,
		"failed":    r.Failed(),
	})
	if err != nil {
		return err
	}

	s.logger.Debug("report published to redis", "stream", s.stream, "run_id", r.RunID, "failures", r.Failed())
	return nil
}

func (s *RedisSink) add(ctx context.Context, values map[string]interface{}) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.redis.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add to redis stream %s: %w", s.stream, err)
	}
	return nil
}
