package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const articleColumns = `id, url, title, source, content, content_fetched, word_count, received_at,
	elo_rating, elo_comparisons, elo_confidence, generation_id, scored_at`

// InsertArticle stores a new article with the default rating. Returns the ID
// on success, 0 if the URL is already known.
func (db *DB) InsertArticle(a NewArticle) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO articles (url, title, source, content, content_fetched, word_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.URL, a.Title, a.Source, a.Content, hasText(a.Content), wordCount(a.Content),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, nil
		}
		return 0, fmt.Errorf("inserting article: %w", err)
	}
	return result.LastInsertId()
}

// GetArticleByID returns a single article by ID, or nil if it does not exist.
func (db *DB) GetArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(`SELECT `+articleColumns+` FROM articles WHERE id = ?`, articleID)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticlesByRating returns articles ordered best first.
func (db *DB) GetArticlesByRating(limit, offset int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles
		ORDER BY elo_rating DESC, received_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// GetAllRatings returns the rating of every article.
func (db *DB) GetAllRatings() ([]float64, error) {
	rows, err := db.conn.Query("SELECT elo_rating FROM articles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// GetUnscoredArticles returns articles that have never finished a scoring
// run, oldest first.
func (db *DB) GetUnscoredArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles
		WHERE scored_at IS NULL ORDER BY received_at ASC, id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ListOpponentCandidates returns every article except the subject.
func (db *DB) ListOpponentCandidates(excludeID int64) ([]OpponentCandidate, error) {
	rows, err := db.conn.Query(
		"SELECT id, generation_id FROM articles WHERE id != ? ORDER BY id", excludeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpponentCandidate
	for rows.Next() {
		var c OpponentCandidate
		if err := rows.Scan(&c.ID, &c.GenerationID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkArticleScored records that a scoring run for the article finished
// under the given generation.
func (db *DB) MarkArticleScored(articleID int64, generationID *int64, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE articles SET scored_at = ?, generation_id = COALESCE(?, generation_id) WHERE id = ?",
		formatTime(at), generationID, articleID,
	)
	return err
}

// GetArticlesNeedingFetch returns articles with empty content that haven't been fetched.
func (db *DB) GetArticlesNeedingFetch() ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT ` + articleColumns + ` FROM articles
		WHERE (content IS NULL OR content = '') AND content_fetched = 0
		ORDER BY received_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// UpdateArticleContent updates article content after fetching.
func (db *DB) UpdateArticleContent(articleID int64, content *string) error {
	_, err := db.conn.Exec(
		"UPDATE articles SET content = ?, content_fetched = 1, word_count = ? WHERE id = ?",
		content, wordCount(content), articleID,
	)
	return err
}

// MarkArticleFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkArticleFetchAttempted(articleID int64) error {
	_, err := db.conn.Exec(
		"UPDATE articles SET content_fetched = 1 WHERE id = ?", articleID,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func scanArticle(row scanner) (*Article, error) {
	var a Article
	var fetched, confident int
	var receivedAt string
	var scoredAt *string
	if err := row.Scan(&a.ID, &a.URL, &a.Title, &a.Source, &a.Content, &fetched,
		&a.WordCount, &receivedAt, &a.EloRating, &a.EloComparisons, &confident,
		&a.GenerationID, &scoredAt); err != nil {
		return nil, err
	}
	a.ContentFetched = fetched != 0
	a.EloConfident = confident != 0
	a.ReceivedAt = parseTime(receivedAt)
	if scoredAt != nil {
		t := parseTime(*scoredAt)
		a.ScoredAt = &t
	}
	return &a, nil
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func wordCount(s *string) int {
	if s == nil {
		return 0
	}
	return len(strings.Fields(*s))
}

// SearchArticles returns articles whose title, source or content contains
// query, best rated first.
func (db *DB) SearchArticles(query string, limit int) ([]Article, error) {
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles
		WHERE title LIKE ? ESCAPE '\' OR source LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
		ORDER BY elo_rating DESC, received_at DESC LIMIT ?`,
		like, like, like, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
