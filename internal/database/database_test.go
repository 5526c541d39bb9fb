package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func insertArticle(t *testing.T, db *DB, url string) int64 {
	t.Helper()
	id, err := db.InsertArticle(NewArticle{URL: url, Title: "Title " + url, Content: ptr("some body text")})
	if err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	return id
}

// fixedUpdate moves the subject up and the opponent down by delta.
func fixedUpdate(delta float64) RatingUpdate {
	return func(s, o float64) (float64, float64) { return s + delta, o - delta }
}

func TestInsertArticleDefaults(t *testing.T) {
	db := openTestDB(t)
	id := insertArticle(t, db, "https://example.com/a")

	a, err := db.GetArticleByID(id)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if a.EloRating != 1500 {
		t.Errorf("expected default rating 1500, got %f", a.EloRating)
	}
	if a.EloComparisons != 0 || a.EloConfident {
		t.Errorf("expected fresh counters, got %d/%v", a.EloComparisons, a.EloConfident)
	}
	if a.ScoredAt != nil || a.GenerationID != nil {
		t.Error("new article should be unscored")
	}
	if a.WordCount != 3 {
		t.Errorf("expected word count 3, got %d", a.WordCount)
	}
	if a.ReceivedAt.IsZero() {
		t.Error("expected received_at to be set")
	}
}

func TestInsertDuplicateArticle(t *testing.T) {
	db := openTestDB(t)
	insertArticle(t, db, "https://example.com/dup")
	id, err := db.InsertArticle(NewArticle{URL: "https://example.com/dup", Title: "Duplicate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Error("expected 0 for duplicate article")
	}
}

func TestGetArticleByIDMissing(t *testing.T) {
	db := openTestDB(t)
	a, err := db.GetArticleByID(999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("expected nil for missing article")
	}
}

func TestArticlesNeedingFetch(t *testing.T) {
	db := openTestDB(t)
	db.InsertArticle(NewArticle{URL: "https://a.com", Title: "No content"})
	db.InsertArticle(NewArticle{URL: "https://b.com", Title: "Has content", Content: ptr("Some text")})

	needing, err := db.GetArticlesNeedingFetch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(needing) != 1 {
		t.Fatalf("expected 1 article needing fetch, got %d", len(needing))
	}
	if needing[0].Title != "No content" {
		t.Errorf("expected 'No content', got %q", needing[0].Title)
	}

	if err := db.UpdateArticleContent(needing[0].ID, ptr("fetched words here now")); err != nil {
		t.Fatalf("UpdateArticleContent: %v", err)
	}
	a, _ := db.GetArticleByID(needing[0].ID)
	if !a.ContentFetched || a.WordCount != 4 {
		t.Errorf("expected fetched content with 4 words, got %v/%d", a.ContentFetched, a.WordCount)
	}
}

func TestRecordComparisonAtomicUpdate(t *testing.T) {
	db := openTestDB(t)
	subject := insertArticle(t, db, "https://a.com")
	opponent := insertArticle(t, db, "https://b.com")
	gen, err := db.CreateGeneration("criteria", nil, 0, true)
	if err != nil {
		t.Fatalf("CreateGeneration: %v", err)
	}

	c, err := db.RecordComparison(context.Background(), ComparisonInput{
		SubjectID:    subject,
		OpponentID:   opponent,
		WinnerID:     &subject,
		Reasoning:    "A is better",
		KFactor:      32,
		GenerationID: &gen,
		At:           time.Now(),
	}, fixedUpdate(16))
	if err != nil {
		t.Fatalf("RecordComparison: %v", err)
	}
	if c.ArticleAAfter != 1516 || c.ArticleBAfter != 1484 {
		t.Errorf("unexpected ledger ratings %f/%f", c.ArticleAAfter, c.ArticleBAfter)
	}

	a, _ := db.GetArticleByID(subject)
	b, _ := db.GetArticleByID(opponent)
	if a.EloRating != 1516 || b.EloRating != 1484 {
		t.Errorf("persisted ratings %f/%f, want 1516/1484", a.EloRating, b.EloRating)
	}
	if a.EloComparisons != 1 || b.EloComparisons != 1 {
		t.Errorf("expected both counters at 1, got %d/%d", a.EloComparisons, b.EloComparisons)
	}
	if a.GenerationID == nil || *a.GenerationID != gen {
		t.Error("expected subject stamped with generation")
	}
	if b.GenerationID != nil {
		t.Error("opponent generation should be untouched")
	}

	history, err := db.GetComparisonsForArticle(opponent)
	if err != nil {
		t.Fatalf("GetComparisonsForArticle: %v", err)
	}
	if len(history) != 1 || history[0].ArticleAID != subject || *history[0].WinnerID != subject {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestRecordComparisonUsesPersistedOpponentRating(t *testing.T) {
	db := openTestDB(t)
	s1 := insertArticle(t, db, "https://a.com")
	s2 := insertArticle(t, db, "https://b.com")
	opp := insertArticle(t, db, "https://c.com")
	ctx := context.Background()

	if _, err := db.RecordComparison(ctx, ComparisonInput{SubjectID: s1, OpponentID: opp, KFactor: 32}, fixedUpdate(10)); err != nil {
		t.Fatal(err)
	}
	var seen float64
	_, err := db.RecordComparison(ctx, ComparisonInput{SubjectID: s2, OpponentID: opp, KFactor: 32},
		func(s, o float64) (float64, float64) {
			seen = o
			return s, o
		})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 1490 {
		t.Errorf("expected opponent's persisted rating 1490, got %f", seen)
	}
}

func TestRecordComparisonUsesPersistedSubjectRating(t *testing.T) {
	db := openTestDB(t)
	subject := insertArticle(t, db, "https://a.com")
	other := insertArticle(t, db, "https://b.com")
	opp := insertArticle(t, db, "https://c.com")
	ctx := context.Background()

	// subject loses a comparison where it is the opponent
	if _, err := db.RecordComparison(ctx, ComparisonInput{SubjectID: other, OpponentID: subject, KFactor: 32}, fixedUpdate(16)); err != nil {
		t.Fatal(err)
	}
	c, err := db.RecordComparison(ctx, ComparisonInput{SubjectID: subject, OpponentID: opp, KFactor: 32}, fixedUpdate(0))
	if err != nil {
		t.Fatal(err)
	}
	if c.ArticleABefore != 1484 || c.ArticleAAfter != 1484 {
		t.Errorf("ledger recorded %f -> %f, want 1484 -> 1484", c.ArticleABefore, c.ArticleAAfter)
	}
	if c.SubjectComparisons != 2 {
		t.Errorf("expected subject count 2, got %d", c.SubjectComparisons)
	}
	a, _ := db.GetArticleByID(subject)
	if a.EloRating != 1484 || a.EloComparisons != 2 {
		t.Errorf("persisted %f/%d, want 1484/2", a.EloRating, a.EloComparisons)
	}
}

func TestRecordComparisonConfidenceAfterSeven(t *testing.T) {
	db := openTestDB(t)
	subject := insertArticle(t, db, "https://s.com")
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		opp := insertArticle(t, db, "https://o.com/"+string(rune('a'+i)))
		c, err := db.RecordComparison(ctx, ComparisonInput{SubjectID: subject, OpponentID: opp, KFactor: 32}, fixedUpdate(1))
		if err != nil {
			t.Fatal(err)
		}
		if c.SubjectComparisons != i+1 || c.SubjectConfident != (i == 6) {
			t.Errorf("comparison %d reported %d/%v", i+1, c.SubjectComparisons, c.SubjectConfident)
		}

		a, _ := db.GetArticleByID(subject)
		if want := i == 6; a.EloConfident != want {
			t.Errorf("after %d comparisons confident=%v, want %v", i+1, a.EloConfident, want)
		}
	}
}

func TestRecordComparisonMissingOpponent(t *testing.T) {
	db := openTestDB(t)
	subject := insertArticle(t, db, "https://s.com")
	_, err := db.RecordComparison(context.Background(), ComparisonInput{SubjectID: subject, OpponentID: 42}, fixedUpdate(1))
	if err == nil {
		t.Fatal("expected error for missing opponent")
	}
	a, _ := db.GetArticleByID(subject)
	if a.EloRating != 1500 || a.EloComparisons != 0 {
		t.Error("subject must be untouched after failed comparison")
	}
}

func TestRecordComparisonConcurrentNoLostUpdates(t *testing.T) {
	db := openTestDB(t)
	opp := insertArticle(t, db, "https://opp.com")
	const n = 8
	subjects := make([]int64, n)
	for i := range subjects {
		subjects[i] = insertArticle(t, db, "https://s.com/"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, s := range subjects {
		wg.Add(1)
		go func(s int64) {
			defer wg.Done()
			_, err := db.RecordComparison(context.Background(), ComparisonInput{SubjectID: s, OpponentID: opp, KFactor: 32}, fixedUpdate(1))
			errs <- err
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent RecordComparison: %v", err)
		}
	}

	a, _ := db.GetArticleByID(opp)
	if a.EloRating != 1500-n || a.EloComparisons != n {
		t.Errorf("expected %d decrements, got rating %f comparisons %d", n, a.EloRating, a.EloComparisons)
	}
}

func TestMarkArticleScoredAndUnscored(t *testing.T) {
	db := openTestDB(t)
	a := insertArticle(t, db, "https://a.com")
	b := insertArticle(t, db, "https://b.com")

	unscored, err := db.GetUnscoredArticles(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(unscored) != 2 {
		t.Fatalf("expected 2 unscored, got %d", len(unscored))
	}

	gen, _ := db.CreateGeneration("criteria", nil, 0, true)
	if err := db.MarkArticleScored(a, &gen, time.Now()); err != nil {
		t.Fatal(err)
	}
	unscored, _ = db.GetUnscoredArticles(10)
	if len(unscored) != 1 || unscored[0].ID != b {
		t.Errorf("expected only %d unscored, got %+v", b, unscored)
	}

	cands, err := db.ListOpponentCandidates(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].ID != a || cands[0].GenerationID == nil || *cands[0].GenerationID != gen {
		t.Errorf("unexpected candidates %+v", cands)
	}
}

func TestCreateGenerationSingleActive(t *testing.T) {
	db := openTestDB(t)

	active, err := db.GetActiveGeneration()
	if err != nil || active != nil {
		t.Fatalf("expected no active generation, got %v, %v", active, err)
	}

	g1, _ := db.CreateGeneration("first", nil, 0, true)
	g2, err := db.CreateGeneration("second", ptr("-first\n+second\n"), 3, true)
	if err != nil {
		t.Fatalf("CreateGeneration: %v", err)
	}
	g3, _ := db.CreateGeneration("draft", nil, 0, false)

	active, _ = db.GetActiveGeneration()
	if active == nil || active.ID != g2 {
		t.Fatalf("expected generation %d active, got %+v", g2, active)
	}
	if active.FeedbackCount != 3 || *active.DiffFromPrevious != "-first\n+second\n" {
		t.Errorf("unexpected stored fields %+v", active)
	}

	gens, err := db.ListGenerations()
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 3 || gens[0].ID != g3 || gens[2].ID != g1 {
		t.Errorf("expected newest first, got %+v", gens)
	}
	activeCount := 0
	for _, g := range gens {
		if g.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("expected exactly one active generation, got %d", activeCount)
	}

	first, _ := db.GetGeneration(g1)
	if first.PromptText != "first" || first.DiffFromPrevious != nil {
		t.Errorf("generation 1 changed: %+v", first)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	db := openTestDB(t)
	article := insertArticle(t, db, "https://a.com")
	now := time.Now().UTC()

	old, _ := db.InsertFeedback(article, "too old", nil, now.Add(-48*time.Hour))
	recent, err := db.InsertFeedback(article, "more like this", &FiveWhats{Topic: "AI", Style: "essay"}, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("InsertFeedback: %v", err)
	}

	items, err := db.GetUnconsumedFeedbackSince(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != recent {
		t.Fatalf("expected only recent item, got %+v", items)
	}
	if items[0].Characterization == nil || items[0].Characterization.Topic != "AI" {
		t.Errorf("characterization not round-tripped: %+v", items[0].Characterization)
	}

	if err := db.LinkFeedbackToGeneration(nil, 1); err != nil {
		t.Errorf("empty link should be a no-op, got %v", err)
	}

	gen, _ := db.CreateGeneration("g", nil, 1, true)
	if err := db.LinkFeedbackToGeneration([]int64{recent}, gen); err != nil {
		t.Fatal(err)
	}
	items, _ = db.GetUnconsumedFeedbackSince(now.Add(-24 * time.Hour))
	if len(items) != 0 {
		t.Errorf("expected linked feedback to be consumed, got %d", len(items))
	}

	other, _ := db.CreateGeneration("h", nil, 0, true)
	if err := db.LinkFeedbackToGeneration([]int64{recent}, other); err != nil {
		t.Fatal(err)
	}
	linked, _ := db.GetFeedbackForGeneration(gen)
	if len(linked) != 1 {
		t.Errorf("feedback should stay linked to its first generation, got %d", len(linked))
	}

	all, _ := db.GetFeedbackForArticle(article)
	if len(all) != 2 || all[1].ID != old {
		t.Errorf("expected both items newest first, got %+v", all)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	a := insertArticle(t, db, "https://a.com")
	insertArticle(t, db, "https://b.com")
	gen, _ := db.CreateGeneration("g", nil, 0, true)
	db.InsertFeedback(a, "nice", nil, time.Now())
	db.MarkArticleScored(a, &gen, time.Now())

	s, err := db.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalArticles != 2 || s.ScoredArticles != 1 || s.Generations != 1 ||
		s.ActiveGeneration != gen || s.FeedbackPending != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestGetAllRatingsAndOrder(t *testing.T) {
	db := openTestDB(t)
	a := insertArticle(t, db, "https://a.com")
	b := insertArticle(t, db, "https://b.com")
	db.RecordComparison(context.Background(), ComparisonInput{SubjectID: b, OpponentID: a, KFactor: 32}, fixedUpdate(16))

	ratings, err := db.GetAllRatings()
	if err != nil {
		t.Fatal(err)
	}
	if len(ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(ratings))
	}

	ranked, _ := db.GetArticlesByRating(10, 0)
	if ranked[0].ID != b {
		t.Errorf("expected winner first, got %d", ranked[0].ID)
	}
}

func TestSearchArticles(t *testing.T) {
	db := openTestDB(t)
	db.InsertArticle(NewArticle{URL: "https://a.com", Title: "Go generics deep dive"})
	db.InsertArticle(NewArticle{URL: "https://b.com", Title: "Cooking", Content: ptr("a recipe with go-to spices")})
	db.InsertArticle(NewArticle{URL: "https://c.com", Title: "100% uptime"})

	got, err := db.SearchArticles("go", 10)
	if err != nil {
		t.Fatalf("SearchArticles: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 matches, got %d", len(got))
	}

	pct, _ := db.SearchArticles("100%", 10)
	if len(pct) != 1 || pct[0].Title != "100% uptime" {
		t.Errorf("expected literal %% match, got %+v", pct)
	}
	none, _ := db.SearchArticles("0%u", 10)
	if len(none) != 0 {
		t.Errorf("wildcards in the query should be literal, got %d", len(none))
	}
}
