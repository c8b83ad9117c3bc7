// Package gemini adapts Google's genai SDK to the llm.Completer contract.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"memorybench/pkg/llm"
	"memorybench/pkg/tokencount"
)

const defaultCostPerMillionInput = 1.25
const defaultCostPerMillionOutput = 5.0

// Client wraps a genai.Client to satisfy llm.Completer. The underlying
// client is created lazily on first use, since construction requires a
// context that isn't available at adapter-build time.
type Client struct {
	raw            *genai.Client
	apiKey         string
	model          string
	costPerMInput  float64
	costPerMOutput float64
}

// NewClient builds a Gemini-backed Completer for the given model name.
func NewClient(apiKey, modelName string) *Client {
	return &Client{
		apiKey:         apiKey,
		model:          modelName,
		costPerMInput:  defaultCostPerMillionInput,
		costPerMOutput: defaultCostPerMillionOutput,
	}
}

// NewClientWithPricing is like NewClient but overrides per-million-token cost.
func NewClientWithPricing(apiKey, modelName string, costPerMInput, costPerMOutput float64) *Client {
	c := NewClient(apiKey, modelName)
	c.costPerMInput = costPerMInput
	c.costPerMOutput = costPerMOutput
	return c
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// Complete sends a single-turn user message and returns the response text,
// token usage, and computed cost.
func (c *Client) Complete(ctx context.Context, prompt string) (string, llm.TokenUsage, float64, error) {
	if c.raw == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return "", llm.TokenUsage{}, 0, fmt.Errorf("creating gemini client: %w", err)
		}
		c.raw = client
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := c.raw.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("gemini completion: %w", err)
	}
	if result == nil {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("gemini completion: empty response")
	}

	text := result.Text()
	usage := llm.TokenUsage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
		usage.CachedInputTokens = int(result.UsageMetadata.CachedContentTokenCount)
	} else {
		// Gemini only omits UsageMetadata on malformed responses; estimate
		// both sides so cost and stats tracking still see nonzero tokens.
		usage.InputTokens = tokencount.Count(prompt)
		usage.OutputTokens = tokencount.Count(text)
	}
	cost := float64(usage.InputTokens)/1_000_000*c.costPerMInput +
		float64(usage.OutputTokens)/1_000_000*c.costPerMOutput

	return text, usage, cost, nil
}
