// Package feedback records the reader's free-text reactions to articles
// and hands unconsumed ones to the refinement loop.
package feedback

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/llm"
	"go.uber.org/zap"
)

var (
	// ErrEmptyFeedback is returned for blank feedback text.
	ErrEmptyFeedback = errors.New("feedback text is empty")
	// ErrArticleNotFound is returned when feedback names an unknown article.
	ErrArticleNotFound = errors.New("article not found")
)

// Collector stores feedback and serves it to refinement.
type Collector struct {
	db    *database.DB
	judge llm.Judge
	now   func() time.Time
}

// NewCollector creates a collector. judge may be nil, in which case
// Characterize is unavailable.
func NewCollector(db *database.DB, judge llm.Judge) *Collector {
	return &Collector{db: db, judge: judge, now: time.Now}
}

// Record stores one feedback item for an article.
func (c *Collector) Record(articleID int64, text string, characterization *database.FiveWhats) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyFeedback
	}

	article, err := c.db.GetArticleByID(articleID)
	if err != nil {
		return 0, err
	}
	if article == nil {
		return 0, fmt.Errorf("%w: %d", ErrArticleNotFound, articleID)
	}

	id, err := c.db.InsertFeedback(articleID, text, characterization, c.now())
	if err != nil {
		return 0, err
	}
	zap.S().Infof("Recorded feedback %d on %q", id, article.Title)
	return id, nil
}

// UnconsumedSince returns feedback not yet used by a refinement, created at
// or after since.
func (c *Collector) UnconsumedSince(since time.Time) ([]database.Feedback, error) {
	return c.db.GetUnconsumedFeedbackSince(since)
}

// LinkToGeneration marks items as consumed by a generation. An empty list
// is a no-op.
func (c *Collector) LinkToGeneration(ids []int64, generationID int64) error {
	return c.db.LinkFeedbackToGeneration(ids, generationID)
}
