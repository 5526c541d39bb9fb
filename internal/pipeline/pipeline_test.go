package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/TobiSchelling/reader/internal/config"
	"github.com/TobiSchelling/reader/internal/database"
)

type mockJudge struct {
	mu    sync.Mutex
	calls int
}

func (m *mockJudge) Name() string { return "mock" }

func (m *mockJudge) Generate(_ context.Context, _ string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return `{"outcome": "tie", "reasoning": "equally relevant"}`, nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig(feedURL string) *config.Config {
	return &config.Config{
		Sources: config.Sources{Feeds: []config.Feed{{URL: feedURL, Name: "Test"}}},
		Scoring: config.Scoring{KFactor: 32, Opponents: 7, PreviewChars: 500, Workers: 1},
	}
}

func feedServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	var items strings.Builder
	for i := range n {
		fmt.Fprintf(&items, "<item><title>Post %d</title><link>https://example.com/%d</link><description>Body of post %d</description></item>", i, i, i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>%s</channel></rss>`, items.String())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCollectsAndScores(t *testing.T) {
	db := openTestDB(t)
	srv := feedServer(t, 3)
	judge := &mockJudge{}

	r := New(testConfig(srv.URL), db, judge).Run(context.Background())
	if r.Failed() {
		t.Fatalf("pipeline failed: %+v", r.Steps)
	}
	if len(r.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(r.Steps))
	}

	pending, _ := db.GetUnscoredArticles(-1)
	if len(pending) != 0 {
		t.Errorf("expected every article scored, %d pending", len(pending))
	}
	// Each article meets the two others.
	if judge.calls != 6 {
		t.Errorf("expected 6 judge calls, got %d", judge.calls)
	}
	stats, _ := db.GetStats()
	if stats.Comparisons != 6 {
		t.Errorf("expected 6 comparisons, got %d", stats.Comparisons)
	}
}

func TestRunStopsWhenCollectFails(t *testing.T) {
	db := openTestDB(t)
	srv := feedServer(t, 1)
	db.Close()

	r := New(testConfig(srv.URL), db, &mockJudge{}).Run(context.Background())
	if !r.Failed() || len(r.Steps) != 1 {
		t.Errorf("expected a single failed collect step, got %+v", r.Steps)
	}
}

func TestDryRun(t *testing.T) {
	db := openTestDB(t)
	db.InsertArticle(database.NewArticle{URL: "https://a.com", Title: "A"})

	r := New(testConfig("https://unused.example/feed"), db, &mockJudge{}).DryRun()
	if len(r.Steps) != 3 || r.Failed() {
		t.Fatalf("unexpected dry run %+v", r.Steps)
	}
	if !strings.Contains(r.Steps[1].Summary, "1 articles need content fetching") {
		t.Errorf("unexpected fetch summary %q", r.Steps[1].Summary)
	}
	if !strings.Contains(r.Steps[2].Summary, "1 articles awaiting scoring") {
		t.Errorf("unexpected score summary %q", r.Steps[2].Summary)
	}
}
