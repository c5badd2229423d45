// Package worker consumes discussion tasks from the queue and runs them
// through the service.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/internal/coordinator"
	"roundtable.app/roundtable/internal/queue"
	"roundtable.app/roundtable/internal/service"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer *queue.RedisConsumer
	svc      *service.Service
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, svc *service.Service, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		svc:       svc,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"session_id", msg.SessionID)
			w.handleFailedMessage(ctx, msg, err)
			continue
		}
		if err := w.consumer.Ack(ctx, msg); err != nil {
			// The message will be redelivered; re-running a completed
			// session is rejected by its status, so this is safe.
			slog.WarnContext(ctx, "failed to ACK message",
				"error", err,
				"message_id", msg.ID)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"session_id", msg.SessionID)
			err = coordinator.NewFatalError(fmt.Errorf("panic: %v", r))
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs one discussion task.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(msg.SessionID),
		MessageID: logger.Ptr(msg.ID),
		Component: "roundtable.worker",
	})

	slog.InfoContext(ctx, "processing discussion task", "attempt", msg.Attempt)
	return w.svc.Run(ctx, msg.SessionID)
}

// handleFailedMessage decides between retry and DLQ. Fatal discussion errors
// already moved the session to FAILED, so retrying them is pointless; only
// retryable failures under the attempt limit go back on the stream.
func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if !coordinator.IsRetryable(err) {
		slog.ErrorContext(ctx, "fatal discussion error, sending to DLQ",
			"message_id", msg.ID,
			"session_id", msg.SessionID)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"session_id", msg.SessionID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"session_id", msg.SessionID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
