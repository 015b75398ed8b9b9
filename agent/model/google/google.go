// Package google provides a Model adapter for Google's Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/researchagent-go/agent/model"
)

const defaultModel = "gemini-2.5-flash"

// Model implements model.Model for Google's Gemini API.
//
// Example:
//
//	m, err := google.New(ctx, os.Getenv("GOOGLE_API_KEY"), "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//	out, err := m.Invoke(ctx, "What is the capital of France?")
type Model struct {
	client    *genai.Client
	modelName string
}

// New creates a Gemini-backed Model. An empty modelName selects
// gemini-2.5-flash. The returned Model must be closed when no longer needed.
func New(ctx context.Context, apiKey, modelName string) (*Model, error) {
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Model{client: client, modelName: modelName}, nil
}

// Close releases the underlying client's resources.
func (m *Model) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Invoke sends the prompt and returns the concatenated text parts of the
// first candidate. Failures, including safety blocks that leave the
// response empty, are wrapped in *model.InvocationError.
func (m *Model) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	gen := m.client.GenerativeModel(m.modelName)
	resp, err := gen.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &model.InvocationError{Provider: "google", Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &model.InvocationError{
			Provider: "google",
			Err:      errors.New("empty response: no candidates returned"),
		}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", &model.InvocationError{
			Provider: "google",
			Err:      errors.New("empty response: no text parts returned"),
		}
	}

	return sb.String(), nil
}
