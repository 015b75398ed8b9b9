// Package openai provides a Model adapter for OpenAI's chat completion API.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/researchagent-go/agent/model"
)

const defaultModel = "gpt-4o"

// Model implements model.Model for OpenAI's API.
//
// Example:
//
//	m := openai.New(os.Getenv("OPENAI_API_KEY"), "gpt-4o")
//	out, err := m.Invoke(ctx, "What is the capital of France?")
type Model struct {
	client    *openai.Client
	modelName string
}

// New creates an OpenAI-backed Model. An empty modelName selects gpt-4o.
func New(apiKey, modelName string) *Model {
	if modelName == "" {
		modelName = defaultModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Model{
		client:    &client,
		modelName: modelName,
	}
}

// Invoke sends the prompt as a single user message and returns the
// completion text. Failures are wrapped in *model.InvocationError.
func (m *Model) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", &model.InvocationError{Provider: "openai", Err: err}
	}

	if len(completion.Choices) == 0 {
		return "", &model.InvocationError{
			Provider: "openai",
			Err:      errors.New("empty response: no choices returned"),
		}
	}

	return completion.Choices[0].Message.Content, nil
}
