// Package collect pulls new articles from the configured RSS and Atom feeds.
package collect

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/reader/internal/config"
	"github.com/TobiSchelling/reader/internal/database"
	"go.uber.org/zap"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound  int
	NewArticles int
	Duplicates  int
	Sources     map[string]int
	// NewIDs lists the articles inserted by this run, in feed order.
	NewIDs []int64
}

// Collector stores feed entries as unscored articles.
type Collector struct {
	db         *database.DB
	feedParser *FeedParser
	daysBack   int
}

// NewCollector creates a collector for the feeds in cfg. Entries older than
// daysBack are ignored; zero disables the cutoff.
func NewCollector(cfg *config.Config, db *database.DB, daysBack int) *Collector {
	feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
	for i, f := range cfg.Sources.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
	}
	return &Collector{
		db:         db,
		feedParser: NewFeedParser(feeds),
		daysBack:   daysBack,
	}
}

// Collect fetches every feed and inserts entries whose URL is new.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	r := &Result{Sources: make(map[string]int)}

	entries := c.feedParser.ParseAll(ctx, c.daysBack)
	r.TotalFound = len(entries)

	for _, entry := range entries {
		na := database.NewArticle{URL: entry.URL, Title: entry.Title}
		if entry.Source != "" {
			na.Source = &entry.Source
		}
		if entry.Content != "" {
			na.Content = &entry.Content
		}

		id, err := c.db.InsertArticle(na)
		if err != nil {
			return r, fmt.Errorf("storing %s: %w", entry.URL, err)
		}
		if id > 0 {
			r.NewArticles++
			r.Sources[entry.Source]++
			r.NewIDs = append(r.NewIDs, id)
		} else {
			r.Duplicates++
		}
	}

	zap.S().Infof("Collection complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewArticles, r.Duplicates)
	return r, nil
}
