// Package refine rewrites the scoring criteria from accumulated reader
// feedback, producing a new prompt generation.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/feedback"
	"github.com/TobiSchelling/reader/internal/llm"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const refinementPrompt = `You are helping refine a content curation prompt based on user feedback.

Current prompt:
---
%s
---

User feedback from the past %s (%d items):
%s

Based on this feedback, suggest improvements to the prompt. Consider:
- Patterns in what the user liked vs disliked
- Article characteristics that correlate with positive/negative feedback
- Specific adjustments to interests, dislikes or priorities

Respond in JSON format:
{
  "analysis": "Brief analysis of the feedback patterns (2-3 sentences)",
  "changes": ["List of specific changes to make"],
  "new_prompt": "The complete updated prompt text"
}

IMPORTANT:
- The new_prompt must be a complete description of the reader's interests
- Make incremental improvements, not wholesale rewrites
- If no meaningful patterns emerge, return the original prompt with minimal changes`

const refinementMaxTokens = 2000

// DefaultWindow is how far back a run looks for feedback.
const DefaultWindow = 24 * time.Hour

// ErrNoActiveGeneration means there is no baseline prompt to refine.
var ErrNoActiveGeneration = errors.New("no active prompt generation")

// RefinementError reports a judge response that did not yield a new prompt.
type RefinementError struct {
	Err error
}

func (e *RefinementError) Error() string { return "refinement failed: " + e.Err.Error() }
func (e *RefinementError) Unwrap() error { return e.Err }

// Job turns unconsumed feedback into a new active generation.
type Job struct {
	db        *database.DB
	collector *feedback.Collector
	judge     llm.Judge
	window    time.Duration
	now       func() time.Time
}

// NewJob creates a refinement job. A zero window uses DefaultWindow.
func NewJob(db *database.DB, judge llm.Judge, window time.Duration) *Job {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Job{
		db:        db,
		collector: feedback.NewCollector(db, judge),
		judge:     judge,
		window:    window,
		now:       time.Now,
	}
}

// Run performs one refinement. It returns nil, nil when there is no
// feedback to process. A failed judge call or unusable response creates no
// generation and leaves the feedback for the next run.
func (j *Job) Run(ctx context.Context) (*database.PromptGeneration, error) {
	log := zap.S().With("run", uuid.NewString())

	items, err := j.collector.UnconsumedSince(j.now().Add(-j.window))
	if err != nil {
		return nil, fmt.Errorf("gathering feedback: %w", err)
	}
	if len(items) == 0 {
		log.Info("No feedback to process for refinement")
		return nil, nil
	}
	log.Infof("Processing %d feedback items for refinement", len(items))

	current, err := j.db.GetActiveGeneration()
	if err != nil {
		return nil, fmt.Errorf("reading active generation: %w", err)
	}
	if current == nil {
		return nil, ErrNoActiveGeneration
	}

	prompt := fmt.Sprintf(refinementPrompt, current.PromptText, formatWindow(j.window), len(items), formatFeedback(items))
	text, err := j.judge.Generate(ctx, prompt, refinementMaxTokens)
	if err != nil {
		return nil, &RefinementError{Err: err}
	}
	newPrompt, err := parseNewPrompt(text)
	if err != nil {
		return nil, err
	}

	diff, err := WordDiff(current.PromptText, newPrompt)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	id, err := j.db.CreateGeneration(newPrompt, &diff, len(items), true)
	if err != nil {
		return nil, fmt.Errorf("creating generation: %w", err)
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	if err := j.collector.LinkToGeneration(ids, id); err != nil {
		return nil, fmt.Errorf("linking feedback to generation %d: %w", id, err)
	}

	log.Infof("Created prompt generation %d from %d feedback items", id, len(items))
	return j.db.GetGeneration(id)
}

func parseNewPrompt(text string) (string, error) {
	parsed, err := llm.ExtractJSON(text)
	if err != nil {
		return "", &RefinementError{Err: err}
	}
	newPrompt := parsed.Get("new_prompt")
	if !newPrompt.Exists() {
		return "", &RefinementError{Err: errors.New("response missing 'new_prompt' field")}
	}
	s := strings.TrimSpace(newPrompt.String())
	if s == "" {
		return "", &RefinementError{Err: errors.New("response has empty 'new_prompt'")}
	}
	return s, nil
}

func formatFeedback(items []database.Feedback) string {
	blocks := make([]string, 0, len(items))
	for i, f := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "Feedback #%d:\n", i+1)
		fmt.Fprintf(&b, "  User comment: %s", f.Text)
		if c := f.Characterization; c != nil {
			fmt.Fprintf(&b, "\n  Article: topic=%s, style=%s, depth=%s, emotion=%s, level=%s",
				c.Topic, c.Style, c.Depth, c.Emotion, c.Level)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return d.String()
}
