// Package openrouter provides a client for the OpenRouter chat
// completions API. Uses the OpenAI-compatible endpoint.
package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAI-compatible endpoint
	DefaultEndpoint = "https://openrouter.ai/api/v1"

	// DefaultModel is the reasoning model used for market assessments.
	DefaultModel = "deepseek/deepseek-r1"

	defaultTimeout = 120 * time.Second
)

// Client wraps the OpenAI SDK configured for OpenRouter.
type Client struct {
	client *openai.Client
	model  string
}

// Config holds the configuration for the OpenRouter client.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// NewClient creates a new OpenRouter client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.Endpoint
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Analyze sends one analysis prompt and returns the raw completion text.
// Transport errors, non-2xx statuses, and responses without choices all
// surface as errors; the caller decides whether they are fatal.
func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	log.Debug().
		Str("model", c.model).
		Int("prompt_len", len(prompt)).
		Msg("Sending analysis request to OpenRouter")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
