package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"roundtable.app/roundtable/internal/model"
)

// FileStore keeps one JSON document per session under a base directory.
// Suitable for the CLI and development; the postgres store backs the
// service deployment.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *FileStore) Save(_ context.Context, session *model.DiscussionSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}

	// Write-then-rename so a crash mid-write never leaves a truncated
	// document behind.
	tmp := s.path(session.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", session.ID, err)
	}
	if err := os.Rename(tmp, s.path(session.ID)); err != nil {
		return fmt.Errorf("write session %s: %w", session.ID, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, sessionID string) (*model.DiscussionSession, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		slog.WarnContext(ctx, "session file unreadable, treating as missing",
			"session_id", sessionID, "error", err)
		return nil, ErrNotFound
	}

	var session model.DiscussionSession
	if err := json.Unmarshal(data, &session); err != nil {
		slog.WarnContext(ctx, "session file unparseable, treating as missing",
			"session_id", sessionID, "error", err)
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *FileStore) List(ctx context.Context) ([]*model.DiscussionSession, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	var sessions []*model.DiscussionSession
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		session, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Load already logged; a corrupt file costs only itself.
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *FileStore) Delete(_ context.Context, sessionID string) error {
	if err := os.Remove(s.path(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Ping verifies the base directory is writable.
func (s *FileStore) Ping(_ context.Context) error {
	probe := filepath.Join(s.dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("session directory not writable: %w", err)
	}
	return os.Remove(probe)
}
