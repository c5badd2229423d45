// Package store persists discussion session aggregates.
package store

import (
	"context"
	"errors"
	"fmt"

	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/model"
)

// ErrNotFound is returned when a session does not exist. Unreadable or
// unparseable persisted state is reported the same way: a session that
// cannot be loaded is a session that does not exist.
var ErrNotFound = errors.New("session not found")

// SessionStore saves and loads whole session aggregates. Save overwrites;
// List returns summaries ordered by creation time descending.
type SessionStore interface {
	Save(ctx context.Context, session *model.DiscussionSession) error
	Load(ctx context.Context, sessionID string) (*model.DiscussionSession, error)
	List(ctx context.Context) ([]*model.DiscussionSession, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.StorageConfig) (SessionStore, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
