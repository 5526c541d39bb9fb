// Package fetch fills in article bodies that feeds only summarized, using
// readability extraction on the article page.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/TobiSchelling/reader/internal/database"
)

// minContentChars is the shortest extraction accepted as an article body.
const minContentChars = 100

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// ContentFetcher fetches full article text via HTTP + readability extraction.
type ContentFetcher struct {
	db        *database.DB
	client    *http.Client
	userAgent string
}

// NewContentFetcher creates a content fetcher. A zero timeout means 15s.
func NewContentFetcher(db *database.DB, timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		db:        db,
		userAgent: "reader/1.0 (personal article ranker)",
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingContent fetches content for articles stored without a body.
// After an HTTP error status, the rest of that domain is skipped for the run.
func (f *ContentFetcher) FetchMissingContent(ctx context.Context) (*Result, error) {
	articles, err := f.db.GetArticlesNeedingFetch()
	if err != nil {
		return nil, fmt.Errorf("listing articles needing fetch: %w", err)
	}
	result := &Result{}
	if len(articles) == 0 {
		zap.S().Debug("No articles need content fetching")
		return result, nil
	}

	failedDomains := make(map[string]struct{})
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		domain := ""
		if u, err := url.Parse(article.URL); err == nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			result.Skipped++
			continue
		}

		content, err := f.fetchArticleContent(ctx, article.URL)
		if err != nil {
			if _, ok := err.(*statusError); ok && domain != "" {
				failedDomains[domain] = struct{}{}
			}
			zap.S().Warnw("Content fetch failed", "url", article.URL, "error", err)
			result.Failed++
			if err := f.db.MarkArticleFetchAttempted(article.ID); err != nil {
				return result, err
			}
			continue
		}

		if content == "" {
			zap.S().Debugf("No extractable content from %s", article.URL)
			result.Failed++
			if err := f.db.MarkArticleFetchAttempted(article.ID); err != nil {
				return result, err
			}
			continue
		}

		if err := f.db.UpdateArticleContent(article.ID, &content); err != nil {
			return result, fmt.Errorf("storing content for article %d: %w", article.ID, err)
		}
		result.Fetched++
	}

	zap.S().Infof("Content fetch complete: %d fetched, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped)
	return result, nil
}

func (f *ContentFetcher) fetchArticleContent(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &statusError{code: resp.StatusCode}
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentChars {
		return "", nil
	}
	return text, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}
