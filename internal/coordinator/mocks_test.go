package coordinator_test

import (
	"context"
	"sync"

	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/internal/model"
	"roundtable.app/roundtable/internal/store"
)

type mockClient struct {
	generateFn func(ctx context.Context, req llm.Request) (string, error)
	model      string
}

func (m *mockClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return "", nil
}

func (m *mockClient) Model() string {
	if m.model != "" {
		return m.model
	}
	return "mock-model"
}

type mockClientSource struct {
	clientForFn func(name string, ov *llm.Override) (llm.Client, error)
}

func (m *mockClientSource) ClientFor(name string, ov *llm.Override) (llm.Client, error) {
	if m.clientForFn != nil {
		return m.clientForFn(name, ov)
	}
	return &mockClient{}, nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, statement string) ([]string, []string)
}

func (m *mockExtractor) Extract(ctx context.Context, statement string) ([]string, []string) {
	if m.extractFn != nil {
		return m.extractFn(ctx, statement)
	}
	return nil, nil
}

// memStore is an in-memory SessionStore with optional fn overrides and a
// save counter, mirroring the persisted-checkpoint behavior of the real
// backends.
type memStore struct {
	mu        sync.Mutex
	sessions  map[string]*model.DiscussionSession
	saveFn    func(ctx context.Context, session *model.DiscussionSession) error
	saveCalls int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*model.DiscussionSession)}
}

func (m *memStore) Save(ctx context.Context, session *model.DiscussionSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveFn != nil {
		return m.saveFn(ctx, session)
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memStore) Load(_ context.Context, sessionID string) (*model.DiscussionSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memStore) List(_ context.Context) ([]*model.DiscussionSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DiscussionSession
	for _, s := range m.sessions {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return store.ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
