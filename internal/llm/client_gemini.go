package llm

import (
	"context"
	"fmt"

	"contentpilot/internal/logging"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implements StreamingClient on the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)},
		c.generationConfig(systemPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}

// CompleteWithStreaming bridges the SDK's streaming iterator onto the
// channel contract shared by all providers.
func (c *GeminiClient) CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)
	log := logging.L(logging.CategoryLLM)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		stream := c.client.Models.GenerateContentStream(ctx, c.model,
			[]*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)},
			c.generationConfig(systemPrompt))

		for resp, err := range stream {
			if err != nil {
				log.Warn("gemini stream error", zap.Error(err))
				errorChan <- fmt.Errorf("gemini stream failed: %w", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case contentChan <- text:
			case <-ctx.Done():
				return
			}
		}
	}()

	return contentChan, errorChan
}

func (c *GeminiClient) generationConfig(systemPrompt string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	return cfg
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string { return c.model }
