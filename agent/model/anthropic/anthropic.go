// Package anthropic provides a Model adapter for Anthropic's Claude API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/researchagent-go/agent/model"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Model implements model.Model for Anthropic's Claude API.
//
// Example:
//
//	m := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"), "")
//	out, err := m.Invoke(ctx, "What is the capital of France?")
type Model struct {
	client    *anthropic.Client
	modelName string
	maxTokens int64
}

// New creates a Claude-backed Model. An empty modelName selects a current
// Sonnet model.
func New(apiKey, modelName string) *Model {
	if modelName == "" {
		modelName = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Model{
		client:    &client,
		modelName: modelName,
		maxTokens: defaultMaxTokens,
	}
}

// Invoke sends the prompt as a single user message and returns the
// concatenated text blocks of the response. Failures are wrapped in
// *model.InvocationError.
func (m *Model) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	message, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", &model.InvocationError{Provider: "anthropic", Err: err}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if sb.Len() == 0 {
		return "", &model.InvocationError{
			Provider: "anthropic",
			Err:      errors.New("empty response: no text content returned"),
		}
	}

	return sb.String(), nil
}
