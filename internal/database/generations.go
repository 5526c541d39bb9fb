package database

import (
	"database/sql"
	"fmt"
	"time"
)

const generationColumns = "id, prompt_text, diff_from_previous, feedback_count, is_active, created_at"

// CreateGeneration appends a prompt generation. When setActive is true every
// other generation is deactivated in the same transaction, so at most one
// generation is ever active.
func (db *DB) CreateGeneration(promptText string, diff *string, feedbackCount int, setActive bool) (int64, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if setActive {
		if _, err := tx.Exec("UPDATE prompt_generations SET is_active = 0 WHERE is_active = 1"); err != nil {
			return 0, fmt.Errorf("deactivating generations: %w", err)
		}
	}

	result, err := tx.Exec(
		`INSERT INTO prompt_generations (prompt_text, diff_from_previous, feedback_count, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		promptText, diff, feedbackCount, setActive, formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting generation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetActiveGeneration returns the active generation, or nil if there is none.
func (db *DB) GetActiveGeneration() (*PromptGeneration, error) {
	g, err := scanGeneration(db.conn.QueryRow(
		"SELECT " + generationColumns + " FROM prompt_generations WHERE is_active = 1",
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// GetGeneration returns a generation by ID, or nil if it does not exist.
func (db *DB) GetGeneration(id int64) (*PromptGeneration, error) {
	g, err := scanGeneration(db.conn.QueryRow(
		"SELECT "+generationColumns+" FROM prompt_generations WHERE id = ?", id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// ListGenerations returns all generations, newest first.
func (db *DB) ListGenerations() ([]PromptGeneration, error) {
	rows, err := db.conn.Query(
		"SELECT " + generationColumns + " FROM prompt_generations ORDER BY id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PromptGeneration
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func scanGeneration(row scanner) (*PromptGeneration, error) {
	var g PromptGeneration
	var active int
	var createdAt string
	if err := row.Scan(&g.ID, &g.PromptText, &g.DiffFromPrevious, &g.FeedbackCount, &active, &createdAt); err != nil {
		return nil, err
	}
	g.IsActive = active != 0
	g.CreatedAt = parseTime(createdAt)
	return &g, nil
}
