package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roundtable.app/roundtable/core/config"
	"roundtable.app/roundtable/internal/model"
)

// PostgresStore persists each session as a JSONB document keyed by session
// id. The aggregate is always written whole, so a single document column
// beats normalizing rounds and statements out into tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.StorageConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS discussion_sessions (
			id         TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensuring discussion_sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Save(ctx context.Context, session *model.DiscussionSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO discussion_sessions (id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		session.ID, payload, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*model.DiscussionSession, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM discussion_sessions WHERE id = $1`, sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var session model.DiscussionSession
	if err := json.Unmarshal(payload, &session); err != nil {
		slog.WarnContext(ctx, "session payload unparseable, treating as missing",
			"session_id", sessionID, "error", err)
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*model.DiscussionSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM discussion_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.DiscussionSession
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		var session model.DiscussionSession
		if err := json.Unmarshal(payload, &session); err != nil {
			slog.WarnContext(ctx, "session payload unparseable, skipping", "error", err)
			continue
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM discussion_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
