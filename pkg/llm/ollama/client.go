// Package ollama adapts a local Ollama server to the llm.Completer contract.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"memorybench/pkg/llm"
	"memorybench/pkg/tokencount"
)

// Client wraps api.Client to satisfy llm.Completer. Local models carry no
// per-token billing, so Complete always reports zero cost.
type Client struct {
	raw   *api.Client
	model string
}

// NewClient builds an Ollama-backed Completer against hostURL for model.
func NewClient(hostURL, model string) (*Client, error) {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host %q: %w", hostURL, err)
	}
	return &Client{
		raw:   api.NewClient(parsed, http.DefaultClient),
		model: model,
	}, nil
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// Complete sends a single-turn user message to the local Ollama server.
func (c *Client) Complete(ctx context.Context, prompt string) (string, llm.TokenUsage, float64, error) {
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
	}

	var response api.ChatResponse
	err := c.raw.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("ollama completion: %w", err)
	}

	usage := llm.TokenUsage{
		InputTokens:  response.PromptEvalCount,
		OutputTokens: response.EvalCount,
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		// Some Ollama server builds omit eval counts entirely; estimate
		// rather than report zero usage for a non-empty exchange.
		usage.InputTokens = tokencount.Count(prompt)
		usage.OutputTokens = tokencount.Count(response.Message.Content)
	}

	return response.Message.Content, usage, 0, nil
}
