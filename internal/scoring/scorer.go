// Package scoring ranks articles by comparing them pairwise with a judge
// and folding each verdict into their Elo ratings.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/elo"
	"github.com/TobiSchelling/reader/internal/llm"
	"github.com/TobiSchelling/reader/internal/prompts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrArticleNotFound is returned when the subject article does not exist.
var ErrArticleNotFound = errors.New("article not found")

// Options tune a scoring run.
type Options struct {
	KFactor      float64
	Opponents    int
	PreviewChars int
	Workers      int
}

// DefaultOptions returns the standard scoring settings.
func DefaultOptions() Options {
	return Options{
		KFactor:      elo.DefaultKFactor,
		Opponents:    elo.ComparisonsForConfidence,
		PreviewChars: 500,
		Workers:      1,
	}
}

// Result summarizes one scoring run.
type Result struct {
	ArticleID   int64
	Completed   int
	Errors      []string
	Rating      float64
	Comparisons int
	Confident   bool
}

// Scorer runs pairwise scoring for single articles.
type Scorer struct {
	db         *database.DB
	comparator *Comparator
	selector   *OpponentSelector
	opts       Options
	now        func() time.Time
}

// NewScorer creates a scorer. rng may be nil.
func NewScorer(db *database.DB, judge llm.Judge, opts Options, rng *rand.Rand) *Scorer {
	return &Scorer{
		db:         db,
		comparator: NewComparator(judge),
		selector:   NewOpponentSelector(db, rng),
		opts:       opts,
		now:        time.Now,
	}
}

// ScoreArticle compares the article against a fresh set of opponents, one
// at a time, carrying its rating forward between comparisons. A failed
// comparison is reported in Result.Errors and skipped. Persistence errors
// end the run.
func (s *Scorer) ScoreArticle(ctx context.Context, articleID int64) (*Result, error) {
	subject, err := s.db.GetArticleByID(articleID)
	if err != nil {
		return nil, fmt.Errorf("loading article %d: %w", articleID, err)
	}
	if subject == nil {
		return nil, fmt.Errorf("%w: %d", ErrArticleNotFound, articleID)
	}

	log := zap.S().With("run", uuid.NewString(), "article", articleID)

	criteria := prompts.DefaultCriteria
	var generationID *int64
	gen, err := s.db.GetActiveGeneration()
	if err != nil {
		return nil, fmt.Errorf("reading active generation: %w", err)
	}
	if gen != nil {
		criteria = gen.PromptText
		generationID = &gen.ID
	}

	result := &Result{
		ArticleID:   articleID,
		Errors:      []string{},
		Rating:      subject.EloRating,
		Comparisons: subject.EloComparisons,
	}

	opponents, err := s.selector.Select(articleID, generationID, s.opts.Opponents)
	if err != nil {
		return nil, fmt.Errorf("selecting opponents: %w", err)
	}
	if len(opponents) == 0 {
		log.Infof("No opponents yet for %q, keeping rating %.1f", subject.Title, subject.EloRating)
	}

	preview := NewPreview(subject, s.opts.PreviewChars)
	for _, opp := range opponents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		judgment, err := s.comparator.Compare(ctx, criteria, preview, NewPreview(&opp, s.opts.PreviewChars))
		if err != nil {
			msg := fmt.Sprintf("comparison with article %d failed: %v", opp.ID, err)
			log.Warn(msg)
			result.Errors = append(result.Errors, msg)
			continue
		}

		var winnerID *int64
		switch judgment.Outcome {
		case elo.AWins:
			winnerID = &subject.ID
		case elo.BWins:
			winnerID = &opp.ID
		}

		k := s.opts.KFactor
		rec, err := s.db.RecordComparison(ctx, database.ComparisonInput{
			SubjectID:    articleID,
			OpponentID:   opp.ID,
			WinnerID:     winnerID,
			Reasoning:    judgment.Reasoning,
			KFactor:      k,
			GenerationID: generationID,
			At:           s.now(),
		}, func(subjectRating, opponentRating float64) (float64, float64) {
			return elo.Update(subjectRating, opponentRating, judgment.Outcome, k)
		})
		if err != nil {
			return nil, fmt.Errorf("recording comparison with article %d: %w", opp.ID, err)
		}

		result.Rating = rec.ArticleAAfter
		result.Comparisons = rec.SubjectComparisons
		result.Completed++
		log.Debugf("%s vs %d: %.1f -> %.1f", judgment.Outcome, opp.ID, rec.ArticleABefore, rec.ArticleAAfter)
	}

	if err := s.db.MarkArticleScored(articleID, generationID, s.now()); err != nil {
		return nil, fmt.Errorf("marking article %d scored: %w", articleID, err)
	}
	result.Confident = elo.IsConfident(result.Comparisons)

	log.Infof("Scored %q: %d/%d comparisons, rating %.1f", subject.Title, result.Completed, len(opponents), result.Rating)
	return result, nil
}
