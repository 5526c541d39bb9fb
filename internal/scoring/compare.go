package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/elo"
	"github.com/TobiSchelling/reader/internal/llm"
	"go.uber.org/zap"
)

const comparisonPrompt = `You are helping curate a personalized reading list. This is what the reader cares about:
---
%s
---

Compare these two articles and decide which one is MORE RELEVANT and INTERESTING to this reader.

Article A: %s
Source: %s
Preview: %s

Article B: %s
Source: %s
Preview: %s

Which article is more relevant and worth reading? Consider:
- Fit with the reader's interests and dislikes above
- Topic relevance and substance
- Writing quality and clarity
- Practical value or insights

Respond with valid JSON only:
{
  "outcome": "a_wins" | "b_wins" | "tie",
  "reasoning": "Brief explanation (1-2 sentences)"
}

If both are equally relevant, use "tie". Be decisive: prefer one unless they are truly equal.`

const (
	comparisonMaxTokens = 300
	maxReasoningChars   = 1000
	defaultReasoning    = "No reasoning provided"
)

// Preview is the part of an article the judge sees.
type Preview struct {
	Title  string
	Source string
	Text   string
}

// NewPreview takes the first chars characters of the article content.
func NewPreview(a *database.Article, chars int) Preview {
	p := Preview{Title: a.Title, Source: "Unknown"}
	if a.Source != nil && *a.Source != "" {
		p.Source = *a.Source
	}
	if a.Content != nil {
		p.Text = truncateRunes(strings.TrimSpace(*a.Content), chars)
	}
	if p.Text == "" {
		p.Text = "(no preview available)"
	}
	return p
}

// Judgment is the judge's verdict on one pair.
type Judgment struct {
	Outcome   elo.Outcome
	Reasoning string
}

// ComparisonError reports a comparison that produced no usable verdict.
type ComparisonError struct {
	Err error
}

func (e *ComparisonError) Error() string { return "comparison failed: " + e.Err.Error() }
func (e *ComparisonError) Unwrap() error { return e.Err }

// Comparator asks the judge which of two articles better fits the criteria.
type Comparator struct {
	judge llm.Judge
}

// NewComparator creates a comparator backed by judge.
func NewComparator(judge llm.Judge) *Comparator {
	return &Comparator{judge: judge}
}

// Compare judges a against b. Transport and JSON failures return a
// *ComparisonError; an unrecognised outcome is read as a tie.
func (c *Comparator) Compare(ctx context.Context, criteria string, a, b Preview) (*Judgment, error) {
	prompt := fmt.Sprintf(comparisonPrompt, criteria,
		a.Title, a.Source, a.Text,
		b.Title, b.Source, b.Text)

	text, err := c.judge.Generate(ctx, prompt, comparisonMaxTokens)
	if err != nil {
		return nil, &ComparisonError{Err: err}
	}

	parsed, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, &ComparisonError{Err: err}
	}

	outcome := elo.Tie
	if raw := parsed.Get("outcome"); raw.Exists() {
		if outcome, err = elo.ParseOutcome(raw.String()); err != nil {
			zap.S().Warnf("Invalid outcome %q from %s, defaulting to tie", raw.String(), c.judge.Name())
		}
	}

	reasoning := strings.TrimSpace(parsed.Get("reasoning").String())
	if reasoning == "" {
		reasoning = defaultReasoning
	}

	return &Judgment{
		Outcome:   outcome,
		Reasoning: truncateRunes(reasoning, maxReasoningChars),
	}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
