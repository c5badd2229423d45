package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"roundtable.app/roundtable/common/llm"
	"roundtable.app/roundtable/core/config"
)

type stubClient struct {
	generateFn func(ctx context.Context, req llm.Request) (string, error)
}

func (s *stubClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, req)
	}
	return "", nil
}

func (s *stubClient) Model() string { return "stub-model" }

func TestParseSections(t *testing.T) {
	reply := `Here is what I found.

Issues:
1. Unclear ownership of cross-team initiatives
2. No shared definition of done

Solutions:
1. Appoint a directly responsible individual per initiative
2. Write down the definition of done per team
3. Review it quarterly`

	issues, solutions := parseSections(reply)

	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2: %v", len(issues), issues)
	}
	if issues[0] != "Unclear ownership of cross-team initiatives" {
		t.Fatalf("unexpected first issue: %q", issues[0])
	}
	if len(solutions) != 3 {
		t.Fatalf("solutions = %d, want 3: %v", len(solutions), solutions)
	}
}

func TestParseSectionsIgnoresLinesBeforeMarkers(t *testing.T) {
	issues, solutions := parseSections("1. stray numbered line\n2. another one")
	if len(issues) != 0 || len(solutions) != 0 {
		t.Fatalf("lines before markers should be ignored, got %v / %v", issues, solutions)
	}
}

func TestParseSectionsMalformedReply(t *testing.T) {
	issues, solutions := parseSections("no structure at all in this reply")
	if len(issues) != 0 || len(solutions) != 0 {
		t.Fatalf("expected empty result, got %v / %v", issues, solutions)
	}
}

func TestParseSectionsHasNoCap(t *testing.T) {
	reply := "Issues:\n"
	for i := 0; i < 8; i++ {
		reply += "1. a repeated style of numbered issue line\n"
	}
	issues, _ := parseSections(reply)
	if len(issues) != 8 {
		t.Fatalf("issues = %d, want all 8 kept", len(issues))
	}
}

func TestGenerativeDegradesOnCallFailure(t *testing.T) {
	strategy := NewGenerative(&stubClient{
		generateFn: func(context.Context, llm.Request) (string, error) {
			return "", errors.New("backend unavailable")
		},
	}, config.LLMConfig{})

	issues, solutions := strategy.Extract(context.Background(), "any statement")
	if issues != nil || solutions != nil {
		t.Fatalf("expected nil lists on call failure, got %v / %v", issues, solutions)
	}
}

func TestGenerativeSendsStatementAndKnobs(t *testing.T) {
	var captured llm.Request
	strategy := NewGenerative(&stubClient{
		generateFn: func(_ context.Context, req llm.Request) (string, error) {
			captured = req
			return "Issues:\n1. something concrete", nil
		},
	}, config.LLMConfig{MaxTokens: 512, Temperature: 0.2})

	issues, _ := strategy.Extract(context.Background(), "the original statement text")

	if len(captured.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(captured.Messages))
	}
	if !strings.Contains(captured.Messages[0].Content, "the original statement text") {
		t.Fatal("prompt does not carry the statement")
	}
	if captured.MaxTokens != 512 {
		t.Fatalf("max tokens = %d, want 512", captured.MaxTokens)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.2 {
		t.Fatalf("temperature not forwarded: %v", captured.Temperature)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
}

func TestNewStrategySelection(t *testing.T) {
	if _, err := New(config.DiscussConfig{ExtractionStrategy: ""}, config.LLMConfig{}, nil); err != nil {
		t.Fatalf("empty strategy should default to heuristic: %v", err)
	}
	if _, err := New(config.DiscussConfig{ExtractionStrategy: "generative"}, config.LLMConfig{}, nil); err == nil {
		t.Fatal("generative without a client should be rejected")
	}
	if _, err := New(config.DiscussConfig{ExtractionStrategy: "generative"}, config.LLMConfig{}, &stubClient{}); err != nil {
		t.Fatalf("generative with a client: %v", err)
	}
	if _, err := New(config.DiscussConfig{ExtractionStrategy: "psychic"}, config.LLMConfig{}, nil); err == nil {
		t.Fatal("unknown strategy should be rejected")
	}
}
