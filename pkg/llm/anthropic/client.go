// Package anthropic adapts the Anthropic SDK to the llm.Completer contract.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"memorybench/pkg/llm"
)

// defaultCostPerMillionInput/Output are the per-million-token input and
// output rates used when the caller does not supply pricing; real runs
// should configure them via NewClientWithPricing.
const defaultCostPerMillionInput = 3.0
const defaultCostPerMillionOutput = 15.0

// Client wraps anthropic.Client to satisfy llm.Completer.
type Client struct {
	raw              anthropic.Client
	model            anthropic.Model
	maxTokens        int64
	costPerMInput    float64
	costPerMOutput   float64
}

// NewClient builds an Anthropic-backed Completer for the given model name.
func NewClient(apiKey, modelName string, maxTokens int) *Client {
	return &Client{
		raw:            anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(modelName),
		maxTokens:      int64(maxTokens),
		costPerMInput:  defaultCostPerMillionInput,
		costPerMOutput: defaultCostPerMillionOutput,
	}
}

// NewClientWithPricing is like NewClient but overrides the per-million-token
// cost used to compute AnswerResult.Cost.
func NewClientWithPricing(apiKey, modelName string, maxTokens int, costPerMInput, costPerMOutput float64) *Client {
	c := NewClient(apiKey, modelName, maxTokens)
	c.costPerMInput = costPerMInput
	c.costPerMOutput = costPerMOutput
	return c
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return string(c.model)
}

// Complete sends a single-turn user message and returns the response text,
// token usage, and computed cost.
func (c *Client) Complete(ctx context.Context, prompt string) (string, llm.TokenUsage, float64, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := c.raw.Messages.New(ctx, params)
	if err != nil {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("anthropic completion: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("anthropic completion: empty response")
	}

	var text string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	usage := llm.TokenUsage{
		InputTokens:       int(resp.Usage.InputTokens),
		OutputTokens:      int(resp.Usage.OutputTokens),
		CachedInputTokens: int(resp.Usage.CacheReadInputTokens),
	}
	cost := float64(usage.InputTokens)/1_000_000*c.costPerMInput +
		float64(usage.OutputTokens)/1_000_000*c.costPerMOutput

	return text, usage, cost, nil
}
