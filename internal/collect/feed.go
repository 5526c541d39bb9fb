package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const maxPerFeed = 20

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL       string
	Title     string
	Published *time.Time
	Content   string
	Source    string
}

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds, parser: gofeed.NewParser()}
}

// ParseAll parses every feed. A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, daysBack int) []FeedEntry {
	var cutoff time.Time
	if daysBack > 0 {
		cutoff = time.Now().AddDate(0, 0, -daysBack)
	}

	var all []FeedEntry
	for _, fc := range fp.feeds {
		if ctx.Err() != nil {
			break
		}
		name := fc.Name
		if name == "" {
			name = sourceName(fc.URL)
		}

		entries, err := fp.parseFeed(ctx, fc.URL, name, cutoff)
		if err != nil {
			zap.S().Warnw("Failed to parse feed", "url", fc.URL, "error", err)
			continue
		}
		all = append(all, entries...)
		zap.S().Debugf("Parsed %d entries from %s", len(entries), name)
	}
	return all
}

func (fp *FeedParser) parseFeed(ctx context.Context, feedURL, source string, cutoff time.Time) ([]FeedEntry, error) {
	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := parseItem(item, source)
		if entry == nil {
			continue
		}
		// Undated entries are kept.
		if entry.Published != nil && !cutoff.IsZero() && entry.Published.Before(cutoff) {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return nil
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	return &FeedEntry{
		URL:       link,
		Title:     title,
		Published: published,
		Content:   htmlText(body),
		Source:    source,
	}
}

// htmlText reduces an HTML fragment to its whitespace-normalized text.
func htmlText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	doc.Find("p, div, br, li, h1, h2, h3, h4").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sourceName derives a display name from a feed URL:
// https://blog.golang.org/feed.atom -> "Golang".
func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	name := host
	if parts := strings.Split(host, "."); len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
