package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "articles, comparison ledger, prompt generations, feedback",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS prompt_generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    prompt_text TEXT NOT NULL,
    diff_from_previous TEXT,
    feedback_count INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    source TEXT,
    content TEXT,
    content_fetched INTEGER NOT NULL DEFAULT 0,
    word_count INTEGER NOT NULL DEFAULT 0,
    received_at TEXT NOT NULL DEFAULT (datetime('now')),
    elo_rating REAL NOT NULL DEFAULT 1500.0,
    elo_comparisons INTEGER NOT NULL DEFAULT 0,
    elo_confidence INTEGER NOT NULL DEFAULT 0,
    generation_id INTEGER REFERENCES prompt_generations(id),
    scored_at TEXT
);

CREATE TABLE IF NOT EXISTS elo_comparisons (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_a_id INTEGER NOT NULL REFERENCES articles(id),
    article_b_id INTEGER NOT NULL REFERENCES articles(id),
    winner_id INTEGER REFERENCES articles(id),
    llm_reasoning TEXT NOT NULL DEFAULT '',
    article_a_elo_before REAL NOT NULL,
    article_a_elo_after REAL NOT NULL,
    article_b_elo_before REAL NOT NULL,
    article_b_elo_after REAL NOT NULL,
    k_factor REAL NOT NULL,
    generation_id INTEGER REFERENCES prompt_generations(id),
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feedback (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL REFERENCES articles(id),
    feedback_text TEXT NOT NULL,
    characterization TEXT,
    created_at TEXT NOT NULL,
    generation_id INTEGER REFERENCES prompt_generations(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_generations_single_active
    ON prompt_generations(is_active) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS idx_articles_rating ON articles(elo_rating DESC);
CREATE INDEX IF NOT EXISTS idx_articles_generation ON articles(generation_id);
CREATE INDEX IF NOT EXISTS idx_articles_unscored ON articles(scored_at) WHERE scored_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_comparisons_a ON elo_comparisons(article_a_id);
CREATE INDEX IF NOT EXISTS idx_comparisons_b ON elo_comparisons(article_b_id);
CREATE INDEX IF NOT EXISTS idx_feedback_unconsumed ON feedback(created_at) WHERE generation_id IS NULL;
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
