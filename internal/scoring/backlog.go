package scoring

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult summarizes a ScorePending run.
type BatchResult struct {
	Articles    int
	Comparisons int
	Errors      []string
}

// ScorePending scores up to limit articles that have never been scored,
// oldest first. Up to Options.Workers articles are scored at once; each
// article's comparisons stay sequential.
func (s *Scorer) ScorePending(ctx context.Context, limit int) (*BatchResult, error) {
	articles, err := s.db.GetUnscoredArticles(limit)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		zap.S().Info("No articles pending scoring")
		return &BatchResult{}, nil
	}

	workers := max(1, s.opts.Workers)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	br := &BatchResult{}
	for _, a := range articles {
		g.Go(func() error {
			r, err := s.ScoreArticle(ctx, a.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			br.Articles++
			br.Comparisons += r.Completed
			br.Errors = append(br.Errors, r.Errors...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return br, err
	}

	zap.S().Infof("Scoring complete: %d articles, %d comparisons, %d errors",
		br.Articles, br.Comparisons, len(br.Errors))
	return br, nil
}
