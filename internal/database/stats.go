package database

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(*) FROM articles", &s.TotalArticles},
		{"SELECT COUNT(*) FROM articles WHERE scored_at IS NOT NULL", &s.ScoredArticles},
		{"SELECT COUNT(*) FROM articles WHERE elo_confidence = 1", &s.ConfidentArticles},
		{"SELECT COUNT(*) FROM elo_comparisons", &s.Comparisons},
		{"SELECT COUNT(*) FROM prompt_generations", &s.Generations},
		{"SELECT COALESCE(MAX(id), 0) FROM prompt_generations WHERE is_active = 1", &s.ActiveGeneration},
		{"SELECT COUNT(*) FROM feedback", &s.FeedbackTotal},
		{"SELECT COUNT(*) FROM feedback WHERE generation_id IS NULL", &s.FeedbackPending},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
