// Package pipeline runs the ingest cycle: collect new articles, fetch
// missing bodies, then score everything not yet ranked.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/reader/internal/collect"
	"github.com/TobiSchelling/reader/internal/config"
	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/fetch"
	"github.com/TobiSchelling/reader/internal/llm"
	"github.com/TobiSchelling/reader/internal/scoring"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline wires the collector, fetcher and scorer together.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	scorer   *scoring.Scorer
	daysBack int
}

// New creates a pipeline that scores with judge.
func New(cfg *config.Config, db *database.DB, judge llm.Judge) *Pipeline {
	opts := scoring.Options{
		KFactor:      cfg.Scoring.KFactor,
		Opponents:    cfg.Scoring.Opponents,
		PreviewChars: cfg.Scoring.PreviewChars,
		Workers:      cfg.Scoring.Workers,
	}
	return &Pipeline{
		cfg:      cfg,
		db:       db,
		scorer:   scoring.NewScorer(db, judge, opts, nil),
		daysBack: 7,
	}
}

// Run executes collect, fetch and score. A collection failure stops the
// run; a fetch failure does not, since feed summaries can still be scored.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	step := p.runCollect(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runFetch(ctx))
	r.Steps = append(r.Steps, p.runScore(ctx))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] Would poll %d feeds", len(p.cfg.Sources.Feeds)),
	})

	needing, err := p.db.GetArticlesNeedingFetch()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d articles need content fetching", len(needing)),
		Err:     err,
	})

	pending, err := p.db.GetUnscoredArticles(-1)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("[dry-run] %d articles awaiting scoring, up to %d comparisons each", len(pending), p.cfg.Scoring.Opponents),
		Err:     err,
	})

	return r
}

func (p *Pipeline) runCollect(ctx context.Context) StepResult {
	zap.S().Info("Step 1/3: Collecting articles...")
	result, err := collect.NewCollector(p.cfg, p.db, p.daysBack).Collect(ctx)
	if err != nil {
		return StepResult{Name: "Collect", Err: err}
	}
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new articles (%d total, %d duplicates)", result.NewArticles, result.TotalFound, result.Duplicates),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	zap.S().Info("Step 2/3: Fetching article content...")
	result, err := fetch.NewContentFetcher(p.db, 15*time.Second).FetchMissingContent(ctx)
	if err != nil {
		return StepResult{Name: "Fetch", Err: err}
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d articles, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runScore(ctx context.Context) StepResult {
	zap.S().Info("Step 3/3: Scoring new articles...")
	result, err := p.scorer.ScorePending(ctx, -1)
	if err != nil {
		return StepResult{Name: "Score", Err: err}
	}
	return StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("Scored %d articles with %d comparisons, %d failed comparisons", result.Articles, result.Comparisons, len(result.Errors)),
	}
}
