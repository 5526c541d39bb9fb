package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/reader/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var articlePage = `<html><head><title>Raft explained</title></head><body>
<nav>Home | About</nav>
<article><h1>Raft explained</h1>
<p>` + strings.Repeat("Consensus keeps replicated logs in agreement across failures. ", 12) + `</p>
<p>` + strings.Repeat("Leaders append entries and followers acknowledge them. ", 12) + `</p>
</article></body></html>`

func TestFetchMissingContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			fmt.Fprint(w, articlePage)
		case "/short":
			fmt.Fprint(w, "<html><body><p>tiny</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	db := openTestDB(t)
	good, _ := db.InsertArticle(database.NewArticle{URL: srv.URL + "/article", Title: "Raft"})
	short, _ := db.InsertArticle(database.NewArticle{URL: srv.URL + "/short", Title: "Short"})
	body := "already here"
	db.InsertArticle(database.NewArticle{URL: srv.URL + "/has-body", Title: "Body", Content: &body})

	r, err := NewContentFetcher(db, 0).FetchMissingContent(context.Background())
	if err != nil {
		t.Fatalf("FetchMissingContent: %v", err)
	}
	if r.Fetched != 1 || r.Failed != 1 {
		t.Errorf("unexpected result %+v", r)
	}

	a, _ := db.GetArticleByID(good)
	if a.Content == nil || !strings.Contains(*a.Content, "Consensus keeps replicated logs") {
		t.Errorf("expected extracted content, got %v", a.Content)
	}
	if !a.ContentFetched || a.WordCount == 0 {
		t.Error("expected content_fetched and word count to be set")
	}

	s, _ := db.GetArticleByID(short)
	if !s.ContentFetched || s.Content != nil {
		t.Error("short page should be marked attempted without content")
	}

	pending, _ := db.GetArticlesNeedingFetch()
	if len(pending) != 0 {
		t.Errorf("expected nothing left to fetch, got %d", len(pending))
	}
}

func TestFetchSkipsDomainAfterHTTPError(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	db := openTestDB(t)
	db.InsertArticle(database.NewArticle{URL: srv.URL + "/one", Title: "One"})
	db.InsertArticle(database.NewArticle{URL: srv.URL + "/two", Title: "Two"})

	r, err := NewContentFetcher(db, 0).FetchMissingContent(context.Background())
	if err != nil {
		t.Fatalf("FetchMissingContent: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected one request to the failing domain, got %d", hits)
	}
	if r.Failed != 1 || r.Skipped != 1 {
		t.Errorf("unexpected result %+v", r)
	}
}
