// Package llm provides model provider clients. Providers differ in wire
// format but share one contract: blocking completions plus a streaming
// variant that delivers incremental text on a channel pair consumed by
// internal/stream.
package llm

import (
	"context"
	"fmt"

	"contentpilot/internal/config"
)

// Client is the minimal completion interface.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StreamingClient adds incremental delivery. The content channel carries
// text fragments in generation order; the error channel delivers at most
// one error. Both are closed when the stream ends.
type StreamingClient interface {
	Client
	CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.Config) (StreamingClient, error) {
	llm := cfg.LLM
	switch llm.Provider {
	case "openai", "":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  llm.APIKey,
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
			Timeout: cfg.LLMTimeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(llm.APIKey, llm.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llm.Provider)
	}
}
