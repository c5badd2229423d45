package persona_test

import (
	"context"

	"roundtable.app/roundtable/common/llm"
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

type mockExtractor struct {
	extractFn func(ctx context.Context, statement string) ([]string, []string)
}

func (m *mockExtractor) Extract(ctx context.Context, statement string) ([]string, []string) {
	if m.extractFn != nil {
		return m.extractFn(ctx, statement)
	}
	return nil, nil
}
