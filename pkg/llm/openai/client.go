// Package openai adapts the OpenAI SDK to the llm.Completer contract.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"memorybench/pkg/llm"
)

const defaultCostPerMillionInput = 2.5
const defaultCostPerMillionOutput = 10.0

// Client wraps openai.Client to satisfy llm.Completer.
type Client struct {
	raw            openai.Client
	model          string
	costPerMInput  float64
	costPerMOutput float64
}

// NewClient builds an OpenAI-backed Completer for the given model name.
func NewClient(apiKey, modelName string) *Client {
	return &Client{
		raw:            openai.NewClient(option.WithAPIKey(apiKey)),
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

// Complete sends a single user message and returns the response text, token
// usage, and computed cost.
func (c *Client) Complete(ctx context.Context, prompt string) (string, llm.TokenUsage, float64, error) {
	resp, err := c.raw.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.TokenUsage{}, 0, fmt.Errorf("openai completion: no choices returned")
	}

	text := resp.Choices[0].Message.Content

	usage := llm.TokenUsage{
		InputTokens:       int(resp.Usage.PromptTokens),
		OutputTokens:      int(resp.Usage.CompletionTokens),
		CachedInputTokens: int(resp.Usage.PromptTokensDetails.CachedTokens),
	}
	cost := float64(usage.InputTokens)/1_000_000*c.costPerMInput +
		float64(usage.OutputTokens)/1_000_000*c.costPerMOutput

	return text, usage, cost, nil
}
