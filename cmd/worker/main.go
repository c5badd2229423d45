package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"roundtable.app/roundtable/common/id"
	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/common/otel"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/coordinator"
	"roundtable.app/roundtable/internal/extract"
	"roundtable.app/roundtable/internal/persona"
	"roundtable.app/roundtable/internal/queue"
	"roundtable.app/roundtable/internal/service"
	"roundtable.app/roundtable/internal/store"
	"roundtable.app/roundtable/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "roundtable worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.Group,
		"consumer_name", cfg.Queue.Consumer)

	// Different node ID than the server so IDs never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	sessionStore, err := store.New(ctx, cfg.Storage)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize session store", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "session store ready", "backend", cfg.Storage.Backend)

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.Stream,
		Group:        cfg.Queue.Group,
		Consumer:     cfg.Queue.Consumer,
		DLQStream:    cfg.Queue.DLQStream,
		BatchSize:    1, // one discussion at a time
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	svc, err := buildService(cfg, sessionStore)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build discussion service", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, svc, worker.Config{MaxAttempts: 3})

	reclaimer := worker.NewReclaimer(redisClient, worker.ReclaimerConfig{
		Stream:    cfg.Queue.Stream,
		Group:     cfg.Queue.Group,
		Consumer:  cfg.Queue.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func buildService(cfg config.Config, sessionStore store.SessionStore) (*service.Service, error) {
	registry, err := persona.Load(cfg.Personas.CatalogPath)
	if err != nil {
		return nil, err
	}

	facilitatorClient, err := llm.New(llm.Config{
		Provider: cfg.LLM.Facilitator.Provider,
		APIKey:   cfg.LLM.Facilitator.APIKey,
		BaseURL:  cfg.LLM.Facilitator.BaseURL,
		Model:    cfg.LLM.Facilitator.Model,
	})
	if err != nil {
		return nil, err
	}

	var extractorClient llm.Client
	if cfg.Discuss.ExtractionStrategy == "generative" {
		extractorClient, err = llm.New(llm.Config{
			Provider: cfg.LLM.Extractor.Provider,
			APIKey:   cfg.LLM.Extractor.APIKey,
			BaseURL:  cfg.LLM.Extractor.BaseURL,
			Model:    cfg.LLM.Extractor.Model,
		})
		if err != nil {
			return nil, err
		}
	}

	extractor, err := extract.New(cfg.Discuss, cfg.LLM.Extractor, extractorClient)
	if err != nil {
		return nil, err
	}

	personaClients := llm.NewCache(llm.Config{
		Provider: cfg.LLM.Persona.Provider,
		APIKey:   cfg.LLM.Persona.APIKey,
		BaseURL:  cfg.LLM.Persona.BaseURL,
		Model:    cfg.LLM.Persona.Model,
	})

	coord := coordinator.New(
		registry,
		personaClients,
		coordinator.NewFacilitator(facilitatorClient, cfg.LLM.Facilitator),
		extractor,
		sessionStore,
		cfg,
	)

	return service.New(sessionStore, coord, registry, cfg), nil
}
