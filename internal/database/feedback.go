package database

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const feedbackColumns = "id, article_id, feedback_text, characterization, created_at, generation_id"

// InsertFeedback stores a feedback item. It is unconsumed until linked to a
// generation.
func (db *DB) InsertFeedback(articleID int64, text string, characterization *FiveWhats, createdAt time.Time) (int64, error) {
	var charJSON *string
	if characterization != nil {
		b, err := json.Marshal(characterization)
		if err != nil {
			return 0, fmt.Errorf("encoding characterization: %w", err)
		}
		s := string(b)
		charJSON = &s
	}

	result, err := db.conn.Exec(
		`INSERT INTO feedback (article_id, feedback_text, characterization, created_at) VALUES (?, ?, ?, ?)`,
		articleID, text, charJSON, formatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting feedback: %w", err)
	}
	return result.LastInsertId()
}

// GetUnconsumedFeedbackSince returns feedback not yet linked to a generation
// and created at or after since, oldest first.
func (db *DB) GetUnconsumedFeedbackSince(since time.Time) ([]Feedback, error) {
	return db.queryFeedback(
		"SELECT "+feedbackColumns+` FROM feedback
		WHERE generation_id IS NULL AND created_at >= ? ORDER BY created_at ASC, id ASC`,
		formatTime(since),
	)
}

// GetFeedbackForArticle returns all feedback about one article, newest first.
func (db *DB) GetFeedbackForArticle(articleID int64) ([]Feedback, error) {
	return db.queryFeedback(
		"SELECT "+feedbackColumns+" FROM feedback WHERE article_id = ? ORDER BY id DESC", articleID,
	)
}

// GetFeedbackForGeneration returns the feedback consumed to produce a generation.
func (db *DB) GetFeedbackForGeneration(generationID int64) ([]Feedback, error) {
	return db.queryFeedback(
		"SELECT "+feedbackColumns+" FROM feedback WHERE generation_id = ? ORDER BY id ASC", generationID,
	)
}

// LinkFeedbackToGeneration marks feedback items as consumed by a generation.
// Items that are already linked are left alone.
func (db *DB) LinkFeedbackToGeneration(ids []int64, generationID int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "UPDATE feedback SET generation_id = ? WHERE generation_id IS NULL AND id IN (?" +
		strings.Repeat(",?", len(ids)-1) + ")"
	args := make([]any, 0, len(ids)+1)
	args = append(args, generationID)
	for _, id := range ids {
		args = append(args, id)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("linking feedback: %w", err)
	}
	return tx.Commit()
}

func (db *DB) queryFeedback(query string, args ...any) ([]Feedback, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var charJSON *string
		var createdAt string
		if err := rows.Scan(&f.ID, &f.ArticleID, &f.Text, &charJSON, &createdAt, &f.GenerationID); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(createdAt)
		if charJSON != nil && *charJSON != "" {
			var fw FiveWhats
			if err := json.Unmarshal([]byte(*charJSON), &fw); err == nil {
				f.Characterization = &fw
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
