// Package llmrouter implements the LLM Router (C14): an ordered
// provider fallback chain with a cost ledger and daily budget enforcement.
// The per-provider clients are grounded on the teacher's
// internal/llm/{anthropic,openai,google} packages (same SDKs: anthropic-sdk-go,
// openai-go/v2, google.golang.org/genai) but trimmed to the single-shot,
// non-streaming, non-tool-calling call C14 actually needs.
package llmrouter

import (
	"context"

	"docmind/internal/config"
)

// CallResult is one successful provider call.
type CallResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	ModelUsed    string
}

// Provider is the minimal per-backend surface the Router dispatches to.
type Provider interface {
	Name() string
	Call(ctx context.Context, model string, prompt string, temperature float64, maxTokens int) (CallResult, error)
}

// NewProvider builds the concrete client for one configured provider chain
// entry, dispatching by name the way the teacher's llm/providers.Build does.
func NewProvider(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case "anthropic":
		return newAnthropicProvider(cfg), nil
	case "openai":
		return newOpenAIProvider(cfg), nil
	case "google":
		return newGoogleProvider(cfg), nil
	default:
		return newOpenAIProvider(cfg), nil // OpenAI-compatible is the common fallback shape
	}
}
