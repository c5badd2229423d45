// Package service exposes the discussion operations shared by the HTTP API,
// the worker, and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roundtable.app/roundtable/common/logger"
	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/coordinator"
	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/persona"
	"roundtable.app/roundtable/internal/report"
	"roundtable.app/roundtable/internal/store"
)

// ErrNotCompleted is returned when a report is requested for a session that
// has not reached COMPLETED. Precondition failures never mutate state.
var ErrNotCompleted = errors.New("session not completed")

// ErrEmptyTopic rejects discussion requests without a topic.
var ErrEmptyTopic = errors.New("topic must not be empty")

// Service wires the coordinator, the store, and the persona registry behind
// the operation surface: start, status, details, report, list, health.
// The API server passes a nil coordinator; it only enqueues and reads.
type Service struct {
	store    store.SessionStore
	coord    *coordinator.Coordinator
	registry *persona.Registry
	cfg      config.Config
}

func New(st store.SessionStore, coord *coordinator.Coordinator, registry *persona.Registry, cfg config.Config) *Service {
	return &Service{store: st, coord: coord, registry: registry, cfg: cfg}
}

// Create persists a new INITIALIZED session for the topic.
func (s *Service) Create(ctx context.Context, topic string, orgContext map[string]string) (*model.DiscussionSession, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, ErrEmptyTopic
	}

	session := model.NewSession(topic, orgContext)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(session.ID),
		Component: "roundtable.service",
	})

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}
	slog.InfoContext(ctx, "discussion session created", "topic", topic)
	return session, nil
}

// Run drives an existing session through the full discussion. Fatal failures
// move the session to FAILED (best effort) before the error is surfaced;
// retryable failures leave the persisted state as-is for the next attempt.
func (s *Service) Run(ctx context.Context, sessionID string) error {
	if s.coord == nil {
		return errors.New("discussion running is not enabled in this process")
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		Component: "roundtable.service",
	})

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	// Redeliveries of finished sessions are no-ops; a failed session stays
	// failed.
	switch session.Status {
	case model.StatusCompleted:
		slog.InfoContext(ctx, "session already completed, nothing to run")
		return nil
	case model.StatusFailed:
		return fmt.Errorf("session %s: %w", sessionID,
			coordinator.NewFatalError(errors.New("session already failed")))
	}

	runErr := s.coord.RunDiscussion(ctx, session)
	if runErr == nil {
		return nil
	}

	if coordinator.IsRetryable(runErr) {
		slog.WarnContext(ctx, "discussion failed with retryable error", "error", runErr)
		return fmt.Errorf("discussion %s: %w", sessionID, runErr)
	}

	if err := session.Advance(model.StatusFailed); err == nil {
		if saveErr := s.store.Save(ctx, session); saveErr != nil {
			slog.ErrorContext(ctx, "persisting failed session state", "error", saveErr)
		}
	}
	slog.ErrorContext(ctx, "discussion failed", "error", runErr)
	return fmt.Errorf("discussion %s: %w", sessionID, runErr)
}

// Start creates a session and runs it to completion in-process. The CLI
// path; the server enqueues instead.
func (s *Service) Start(ctx context.Context, topic string, orgContext map[string]string) (*model.DiscussionSession, error) {
	session, err := s.Create(ctx, topic, orgContext)
	if err != nil {
		return nil, err
	}
	if err := s.Run(ctx, session.ID); err != nil {
		return session, err
	}
	return s.Details(ctx, session.ID)
}

// StatusSummary is the compact session view used by status and list queries.
type StatusSummary struct {
	SessionID      string  `json:"session_id"`
	Topic          string  `json:"topic"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	RoundsCount    int     `json:"rounds_count"`
	IssuesCount    int     `json:"issues_count"`
	SolutionsCount int     `json:"solutions_count"`
}

func (s *Service) Status(ctx context.Context, sessionID string) (StatusSummary, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return StatusSummary{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return summarize(session), nil
}

// Details returns the full session aggregate.
func (s *Service) Details(ctx context.Context, sessionID string) (*model.DiscussionSession, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return session, nil
}

// Report renders the discussion report. Only COMPLETED sessions have one;
// rendering is deterministic, so an unchanged session always yields the same
// document.
func (s *Service) Report(ctx context.Context, sessionID string) (string, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session.Status != model.StatusCompleted {
		return "", fmt.Errorf("session %s has status %s: %w", sessionID, session.Status, ErrNotCompleted)
	}
	return report.Render(session, s.registry), nil
}

func (s *Service) List(ctx context.Context) ([]StatusSummary, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	summaries := make([]StatusSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, summarize(session))
	}
	return summaries, nil
}

// Health reports storage reachability and which generation capabilities are
// configured.
type Health struct {
	Status    string            `json:"status"`
	Storage   string            `json:"storage"`
	Providers map[string]string `json:"providers"`
}

func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status:  "healthy",
		Storage: "ok",
		Providers: map[string]string{
			"persona":     providerState(s.cfg.LLM.Persona),
			"facilitator": providerState(s.cfg.LLM.Facilitator),
			"extractor":   providerState(s.cfg.LLM.Extractor),
		},
	}
	if err := s.store.Ping(ctx); err != nil {
		h.Status = "unhealthy"
		h.Storage = err.Error()
	}
	return h
}

func providerState(cfg config.LLMConfig) string {
	if !cfg.Enabled() {
		return "unconfigured"
	}
	return fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model)
}

func summarize(session *model.DiscussionSession) StatusSummary {
	summary := StatusSummary{
		SessionID:      session.ID,
		Topic:          session.Topic,
		Status:         string(session.Status),
		CreatedAt:      session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      session.UpdatedAt.Format(time.RFC3339),
		RoundsCount:    len(session.Rounds),
		IssuesCount:    len(session.FinalIssues),
		SolutionsCount: len(session.FinalSolutions),
	}
	if session.CompletedAt != nil {
		summary.CompletedAt = logger.Ptr(session.CompletedAt.Format(time.RFC3339))
	}
	return summary
}
