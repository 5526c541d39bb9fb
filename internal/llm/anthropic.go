package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicJudge uses the Anthropic Messages API.
type AnthropicJudge struct {
	Model  string
	apiKey string
	client *resty.Client
}

// NewAnthropicJudge creates a new Anthropic judge reading its key from apiKeyEnv.
func NewAnthropicJudge(model, apiKeyEnv string) *AnthropicJudge {
	return newAnthropicJudge(model, os.Getenv(apiKeyEnv), anthropicBaseURL)
}

func newAnthropicJudge(model, apiKey, baseURL string) *AnthropicJudge {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(120*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("anthropic-version", anthropicVersion)
	return &AnthropicJudge{Model: model, apiKey: apiKey, client: client}
}

func (a *AnthropicJudge) Name() string { return "anthropic/" + a.Model }

// Check verifies the API key is set.
func (a *AnthropicJudge) Check(context.Context) error {
	if a.apiKey == "" {
		return fmt.Errorf("Anthropic API key not configured")
	}
	return nil
}

// Generate sends a single user message and returns the first text block.
func (a *AnthropicJudge) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model":      a.Model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", a.apiKey).
		SetBody(body).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic API returned %d: %s", resp.StatusCode(), resp.String())
	}

	text := gjson.Get(resp.String(), "content.0.text")
	if !text.Exists() {
		return "", fmt.Errorf("no text content in anthropic response")
	}
	return text.String(), nil
}
