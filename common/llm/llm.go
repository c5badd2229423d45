// Package llm provides the generation capability used by persona agents and
// the discussion facilitator: an ordered message history in, free text out,
// with per-call temperature, token, and timeout overrides.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Message represents a conversation message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Request contains one generation call.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64      // nil = model default, explicit 0 = deterministic
	Timeout     time.Duration // 0 = no per-call deadline
}

// ObjectRequest contains one structured-output call. The schema is enforced
// by the provider; the response is unmarshaled into the caller's type.
type ObjectRequest struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64
	Timeout      time.Duration
}

// Client generates free text from an ordered message history.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// ObjectGenerator is implemented by clients that support schema-constrained
// structured output. Callers type-assert and fall back to free text when the
// configured provider does not support it.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, req ObjectRequest, result any) error
}

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	BaseURL  string // Optional: custom API endpoint
	Model    string
}

// New creates a Client for the configured provider.
// Defaults to OpenAI if no provider is specified.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Temp returns a pointer to a temperature value for per-call overrides.
func Temp(t float64) *float64 {
	return &t
}

// GenerateSchema generates a JSON schema for structured-output calls.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// IsRetryable reports whether a generation error is worth retrying at the
// queue level. Context cancellation and client errors are not; rate limits,
// server errors, and network failures are.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return retryableStatus(ctx, oaiErr.StatusCode)
	}

	var antErr *anthropicsdk.Error
	if errors.As(err, &antErr) {
		return retryableStatus(ctx, antErr.StatusCode)
	}

	// Network errors (no API response) are generally retryable
	slog.WarnContext(ctx, "llm network error, will retry", "error", err)
	return true
}

func retryableStatus(ctx context.Context, status int) bool {
	switch {
	case status == 429:
		slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", status)
		return true
	case status >= 500:
		slog.WarnContext(ctx, "llm server error, will retry", "status_code", status)
		return true
	default:
		slog.ErrorContext(ctx, "llm client error, not retryable", "status_code", status)
		return false
	}
}

// callContext applies the per-call timeout override.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// Cache hands out one Client per named identity, built lazily from a base
// config plus optional per-identity overrides. Clients are stateless between
// sessions, so reuse across a process is safe.
type Cache struct {
	base Config

	mu      sync.Mutex
	clients map[string]Client
}

// Override adjusts provider or model for a single identity.
type Override struct {
	Provider string
	Model    string
}

func NewCache(base Config) *Cache {
	return &Cache{
		base:    base,
		clients: make(map[string]Client),
	}
}

// ClientFor returns the cached client for name, creating it on first use.
func (c *Cache) ClientFor(name string, ov *Override) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[name]; ok {
		return client, nil
	}

	cfg := c.base
	if ov != nil {
		if ov.Provider != "" {
			cfg.Provider = ov.Provider
		}
		if ov.Model != "" {
			cfg.Model = ov.Model
		}
	}

	client, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating llm client for %q: %w", name, err)
	}
	c.clients[name] = client
	return client, nil
}
