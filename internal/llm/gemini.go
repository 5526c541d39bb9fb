package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiJudge uses the Gemini API through the genai SDK.
type GeminiJudge struct {
	Model  string
	client *genai.Client
}

// NewGeminiJudge creates a Gemini judge reading its key from apiKeyEnv.
func NewGeminiJudge(ctx context.Context, model, apiKeyEnv string) (*GeminiJudge, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini judge: %s is not set", apiKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiJudge{Model: model, client: client}, nil
}

func (g *GeminiJudge) Name() string { return "gemini/" + g.Model }

// Check is a no-op; the key was verified at construction.
func (g *GeminiJudge) Check(context.Context) error { return nil }

// Generate asks for a JSON response. maxTokens is not forwarded because
// thinking models spend output tokens before answering.
func (g *GeminiJudge) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.3)),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return result.Text(), nil
}
