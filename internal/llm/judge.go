// Package llm provides the judge used to compare articles and to rewrite
// scoring criteria, backed by a local or hosted language model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/reader/internal/config"
	"go.uber.org/zap"
)

// Judge answers free-form prompts. Implementations are expected to be safe
// for concurrent use.
type Judge interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	Name() string
}

// Checker is implemented by judges that can verify they are reachable and
// configured before any work is sent to them.
type Checker interface {
	Check(ctx context.Context) error
}

// NewJudge builds the judge selected in cfg, wrapped with the configured
// per-call timeout and pacing.
func NewJudge(ctx context.Context, cfg config.Judge) (Judge, error) {
	var j Judge
	switch strings.ToLower(cfg.Backend) {
	case "ollama":
		j = NewOllamaJudge(cfg.OllamaModel, cfg.OllamaURL)
	case "anthropic":
		a := NewAnthropicJudge(cfg.AnthropicModel, cfg.AnthropicKeyEnv)
		if a.apiKey == "" {
			return nil, fmt.Errorf("anthropic judge: %s is not set", cfg.AnthropicKeyEnv)
		}
		j = a
	case "openai":
		o := NewOpenAIJudge(cfg.OpenAIModel, cfg.OpenAIKeyEnv)
		if o.APIKey == "" {
			return nil, fmt.Errorf("openai judge: %s is not set", cfg.OpenAIKeyEnv)
		}
		j = o
	case "gemini":
		g, err := NewGeminiJudge(ctx, cfg.GeminiModel, cfg.GeminiKeyEnv)
		if err != nil {
			return nil, err
		}
		j = g
	default:
		return nil, fmt.Errorf("unknown judge backend %q", cfg.Backend)
	}

	zap.S().Infof("Using judge %s", j.Name())
	return NewPaced(j, cfg.MinInterval(), cfg.Timeout()), nil
}
