// Package llmservice wraps the generation and vision capabilities behind a
// small client so callers never touch provider response structures.
package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"lumina-rag/internal/config"
)

// generationTimeout bounds every outbound generation call. Complex
// reasoning over long contexts can approach this.
const generationTimeout = 60 * time.Second

type Client struct {
	llm llms.Model
}

// New builds a client for the configured provider ("openai" covers any
// OpenAI-compatible endpoint, e.g. OpenRouter).
func New(cfg *config.LLMConfig) (*Client, error) {
	httpClient := &http.Client{Timeout: generationTimeout}

	var llm llms.Model
	var err error
	switch cfg.Provider {
	case "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		)
	case "", "openai":
		llm, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	return &Client{llm: llm}, nil
}

// Generate sends an optional system instruction plus one user turn and
// returns the completion text verbatim.
func (c *Client) Generate(ctx context.Context, system, user string, opts ...llms.CallOption) (string, error) {
	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: system}},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: user}},
	})

	res, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return res.Choices[0].Content, nil
}

// Describe sends image bytes with a text instruction to a multimodal model
// and returns its description.
func (c *Client) Describe(ctx context.Context, data []byte, mimeType, instruction string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryContent{MIMEType: mimeType, Data: data},
				llms.TextContent{Text: instruction},
			},
		},
	}

	res, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return res.Choices[0].Content, nil
}
