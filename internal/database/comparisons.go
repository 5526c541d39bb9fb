package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/reader/internal/elo"
)

// RatingUpdate computes new ratings for the subject and the opponent from
// their ratings before the comparison.
type RatingUpdate func(subject, opponent float64) (float64, float64)

// ComparisonInput describes a judged comparison to be applied to the ledger.
type ComparisonInput struct {
	SubjectID    int64
	OpponentID   int64
	WinnerID     *int64
	Reasoning    string
	KFactor      float64
	GenerationID *int64
	At           time.Time
}

// RecordedComparison is the stored ledger entry plus the subject's counters
// as they stand after it.
type RecordedComparison struct {
	Comparison
	SubjectComparisons int
	SubjectConfident   bool
}

// RecordComparison applies one comparison atomically: it reads both
// articles' current ratings, computes the new ones, bumps both comparison
// counters, stamps the subject with the generation and appends the ledger
// entry. Either all of it is persisted or none of it.
func (db *DB) RecordComparison(ctx context.Context, in ComparisonInput, update RatingUpdate) (*RecordedComparison, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin comparison: %w", err)
	}
	defer tx.Rollback()

	var subjectBefore float64
	var subjectCount int
	err = tx.QueryRowContext(ctx, "SELECT elo_rating, elo_comparisons FROM articles WHERE id = ?", in.SubjectID).
		Scan(&subjectBefore, &subjectCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subject %d not found", in.SubjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading subject rating: %w", err)
	}

	var opponentBefore float64
	err = tx.QueryRowContext(ctx, "SELECT elo_rating FROM articles WHERE id = ?", in.OpponentID).Scan(&opponentBefore)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("opponent %d not found", in.OpponentID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading opponent rating: %w", err)
	}

	subjectAfter, opponentAfter := update(subjectBefore, opponentBefore)

	const bump = `UPDATE articles SET
		elo_rating = ?,
		elo_comparisons = elo_comparisons + 1,
		elo_confidence = CASE WHEN elo_comparisons + 1 >= ? THEN 1 ELSE 0 END`
	if _, err := tx.ExecContext(ctx, bump+", generation_id = COALESCE(?, generation_id) WHERE id = ?",
		subjectAfter, elo.ComparisonsForConfidence, in.GenerationID, in.SubjectID); err != nil {
		return nil, fmt.Errorf("updating subject rating: %w", err)
	}
	if _, err := tx.ExecContext(ctx, bump+" WHERE id = ?",
		opponentAfter, elo.ComparisonsForConfidence, in.OpponentID); err != nil {
		return nil, fmt.Errorf("updating opponent rating: %w", err)
	}

	c := Comparison{
		ArticleAID:     in.SubjectID,
		ArticleBID:     in.OpponentID,
		WinnerID:       in.WinnerID,
		Reasoning:      in.Reasoning,
		ArticleABefore: subjectBefore,
		ArticleAAfter:  subjectAfter,
		ArticleBBefore: opponentBefore,
		ArticleBAfter:  opponentAfter,
		KFactor:        in.KFactor,
		GenerationID:   in.GenerationID,
		CreatedAt:      in.At.UTC().Truncate(time.Second),
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO elo_comparisons (article_a_id, article_b_id, winner_id, llm_reasoning,
			article_a_elo_before, article_a_elo_after, article_b_elo_before, article_b_elo_after,
			k_factor, generation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ArticleAID, c.ArticleBID, c.WinnerID, c.Reasoning,
		c.ArticleABefore, c.ArticleAAfter, c.ArticleBBefore, c.ArticleBAfter,
		c.KFactor, c.GenerationID, formatTime(c.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comparison: %w", err)
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit comparison: %w", err)
	}
	return &RecordedComparison{
		Comparison:         c,
		SubjectComparisons: subjectCount + 1,
		SubjectConfident:   elo.IsConfident(subjectCount + 1),
	}, nil
}

// GetComparisonsForArticle returns every comparison the article took part
// in, newest first.
func (db *DB) GetComparisonsForArticle(articleID int64) ([]Comparison, error) {
	rows, err := db.conn.Query(
		`SELECT id, article_a_id, article_b_id, winner_id, llm_reasoning,
			article_a_elo_before, article_a_elo_after, article_b_elo_before, article_b_elo_after,
			k_factor, generation_id, created_at
		FROM elo_comparisons WHERE article_a_id = ? OR article_b_id = ?
		ORDER BY id DESC`, articleID, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comparison
	for rows.Next() {
		var c Comparison
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ArticleAID, &c.ArticleBID, &c.WinnerID, &c.Reasoning,
			&c.ArticleABefore, &c.ArticleAAfter, &c.ArticleBBefore, &c.ArticleBAfter,
			&c.KFactor, &c.GenerationID, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
