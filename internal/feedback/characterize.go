package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/llm"
	"github.com/tidwall/gjson"
)

const characterizationPrompt = `Analyze this article and provide a 5-Whats characterization:

Title: %s
Source: %s
Content preview: %s

Provide 5 characterizations about this article. Each should be a brief phrase (2-5 words):

1. Topic: What is this article about? (e.g., "Rust memory management", "startup funding")
2. Style: What writing style is used? (e.g., "tutorial", "opinion piece", "news report", "deep dive")
3. Depth: How deep is the coverage? (e.g., "surface level", "intermediate", "expert level")
4. Emotion: What emotional impact does it have? (e.g., "neutral/informative", "exciting", "concerning")
5. Level: What reading level is it written at? (e.g., "beginner friendly", "intermediate", "advanced technical")

Respond in JSON format:
{
  "topic": "...",
  "style": "...",
  "depth": "...",
  "emotion": "...",
  "level": "..."
}`

const (
	characterizeMaxTokens = 300
	characterizeChars     = 1000
	unknownLabel          = "unknown"
	maxLabelChars         = 80
)

// ErrNoJudge is returned when characterization is requested without a judge.
var ErrNoJudge = errors.New("no judge configured")

// Characterize asks the judge for a Five-Whats description of an article.
// Missing labels come back as "unknown".
func (c *Collector) Characterize(ctx context.Context, articleID int64) (*database.FiveWhats, error) {
	if c.judge == nil {
		return nil, ErrNoJudge
	}
	article, err := c.db.GetArticleByID(articleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, fmt.Errorf("%w: %d", ErrArticleNotFound, articleID)
	}

	source := "Unknown"
	if article.Source != nil {
		source = *article.Source
	}
	preview := ""
	if article.Content != nil {
		preview = *article.Content
		if runes := []rune(preview); len(runes) > characterizeChars {
			preview = string(runes[:characterizeChars])
		}
	}

	text, err := c.judge.Generate(ctx,
		fmt.Sprintf(characterizationPrompt, article.Title, source, preview),
		characterizeMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("characterizing article %d: %w", articleID, err)
	}
	parsed, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("characterizing article %d: %w", articleID, err)
	}

	return &database.FiveWhats{
		Topic:   label(parsed, "topic"),
		Style:   label(parsed, "style"),
		Depth:   label(parsed, "depth"),
		Emotion: label(parsed, "emotion"),
		Level:   label(parsed, "level"),
	}, nil
}

func label(r gjson.Result, key string) string {
	v := strings.TrimSpace(r.Get(key).String())
	if v == "" {
		return unknownLabel
	}
	if runes := []rune(v); len(runes) > maxLabelChars {
		v = string(runes[:maxLabelChars])
	}
	return v
}
