package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Dial parses url, checks connectivity, and returns a stream publisher.
func Dial(ctx context.Context, url, stream string, logger *slog.Logger) (Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisPublisher(client, stream, logger), nil
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	fields := map[string]any{
		"type":        string(ev.Type),
		"task_id":     strconv.FormatInt(ev.TaskID, 10),
		"product_id":  ev.ProductID,
		"status":      string(ev.Status),
		"occurred_at": ev.OccurredAt.Format(time.RFC3339Nano),
	}
	if ev.ReviewerID != "" {
		fields["reviewer_id"] = ev.ReviewerID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	p.logger.DebugContext(ctx, "published task event", "type", ev.Type, "task_id", ev.TaskID, "product_id", ev.ProductID)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
