// Package queue moves discussion tasks between the API server and the
// worker over a redis stream, with attempt tracking and a dead letter
// stream for tasks that keep failing.
package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Task asks a worker to run one discussion session.
type Task struct {
	SessionID string
	TraceID   string
	Attempt   int
}

type Producer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
}

func NewRedisProducer(client *redis.Client, stream string) Producer {
	return &redisProducer{client: client, stream: stream}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"session_id": task.SessionID,
		"attempt":    attempt,
	}
	if task.TraceID != "" {
		fields["trace_id"] = task.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue discussion task: %w", err)
	}

	slog.InfoContext(ctx, "discussion task enqueued",
		"session_id", task.SessionID, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
