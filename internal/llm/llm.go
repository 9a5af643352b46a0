// Package llm generates answers through Groq's OpenAI-compatible chat
// completions API.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is the LLaMA model served by Groq.
	DefaultModel = "llama-3.3-70b-versatile"

	// Low temperature keeps answers grounded in the retrieved context.
	temperature = 0.3
	maxTokens   = 1024
)

// Config holds configuration for the chat client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client wraps the chat completions API.
type Client struct {
	client *openai.Client
	model  string
}

// New creates a chat client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if oc.BaseURL == "" {
		oc.BaseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: openai.NewClientWithConfig(oc),
		model:  model,
	}, nil
}

// Generate runs one chat completion and returns the answer text.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
