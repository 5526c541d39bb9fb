package database

import "time"

// TimeLayout is how timestamps are stored. UTC text sorts chronologically.
const TimeLayout = "2006-01-02 15:04:05"

// Article represents a collected article and its current ranking state.
type Article struct {
	ID             int64
	URL            string
	Title          string
	Source         *string
	Content        *string
	ContentFetched bool
	WordCount      int
	ReceivedAt     time.Time
	EloRating      float64
	EloComparisons int
	EloConfident   bool
	GenerationID   *int64
	ScoredAt       *time.Time
}

// NewArticle holds the fields supplied when an article is first stored.
type NewArticle struct {
	URL     string
	Title   string
	Source  *string
	Content *string
}

// OpponentCandidate is the minimal view of an article used for opponent selection.
type OpponentCandidate struct {
	ID           int64
	GenerationID *int64
}

// Comparison is one immutable entry of the comparison ledger.
// Article A is always the article being scored.
type Comparison struct {
	ID             int64
	ArticleAID     int64
	ArticleBID     int64
	WinnerID       *int64
	Reasoning      string
	ArticleABefore float64
	ArticleAAfter  float64
	ArticleBBefore float64
	ArticleBAfter  float64
	KFactor        float64
	GenerationID   *int64
	CreatedAt      time.Time
}

// PromptGeneration is one immutable version of the scoring criteria.
type PromptGeneration struct {
	ID               int64
	PromptText       string
	DiffFromPrevious *string
	FeedbackCount    int
	IsActive         bool
	CreatedAt        time.Time
}

// FiveWhats is a short characterization of an article along five axes.
type FiveWhats struct {
	Topic   string `json:"topic"`
	Style   string `json:"style"`
	Depth   string `json:"depth"`
	Emotion string `json:"emotion"`
	Level   string `json:"level"`
}

// Feedback is a free-text reaction from the reader to one article.
type Feedback struct {
	ID               int64
	ArticleID        int64
	Text             string
	Characterization *FiveWhats
	CreatedAt        time.Time
	GenerationID     *int64
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalArticles     int
	ScoredArticles    int
	ConfidentArticles int
	Comparisons       int
	Generations       int
	ActiveGeneration  int64
	FeedbackTotal     int
	FeedbackPending   int
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
