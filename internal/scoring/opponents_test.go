package scoring

import (
	"math/rand/v2"
	"testing"

	"github.com/TobiSchelling/reader/internal/database"
)

func i64(v int64) *int64 { return &v }

func TestPickOpponentsPrefersCurrentGeneration(t *testing.T) {
	cands := []database.OpponentCandidate{
		{ID: 1, GenerationID: i64(1)},
		{ID: 2, GenerationID: i64(2)},
		{ID: 3, GenerationID: i64(2)},
		{ID: 4, GenerationID: nil},
		{ID: 5, GenerationID: i64(1)},
	}
	rng := rand.New(rand.NewPCG(7, 7))

	got := pickOpponents(cands, i64(2), 2, rng)
	if len(got) != 2 {
		t.Fatalf("expected 2 opponents, got %v", got)
	}
	for _, id := range got {
		if id != 2 && id != 3 {
			t.Errorf("expected current-generation opponents only, got %v", got)
		}
	}
}

func TestPickOpponentsBackfillsWithoutDuplicates(t *testing.T) {
	cands := []database.OpponentCandidate{
		{ID: 1, GenerationID: i64(2)},
		{ID: 2, GenerationID: i64(1)},
		{ID: 3, GenerationID: nil},
		{ID: 4, GenerationID: i64(1)},
	}
	rng := rand.New(rand.NewPCG(1, 1))

	got := pickOpponents(cands, i64(2), 3, rng)
	if len(got) != 3 {
		t.Fatalf("expected 3 opponents, got %v", got)
	}
	if got[0] != 1 {
		t.Errorf("current-generation opponent should come first, got %v", got)
	}
	seen := map[int64]bool{}
	for _, id := range got {
		if seen[id] {
			t.Errorf("duplicate opponent %d in %v", id, got)
		}
		seen[id] = true
	}
}

func TestPickOpponentsFewerThanRequested(t *testing.T) {
	cands := []database.OpponentCandidate{{ID: 1}, {ID: 2}}
	got := pickOpponents(cands, nil, 7, rand.New(rand.NewPCG(1, 1)))
	if len(got) != 2 {
		t.Errorf("expected all 2 candidates, got %v", got)
	}
	if got := pickOpponents(nil, nil, 7, rand.New(rand.NewPCG(1, 1))); len(got) != 0 {
		t.Errorf("expected none from empty pool, got %v", got)
	}
}

func TestPickOpponentsUniform(t *testing.T) {
	cands := make([]database.OpponentCandidate, 10)
	for i := range cands {
		cands[i] = database.OpponentCandidate{ID: int64(i + 1)}
	}
	rng := rand.New(rand.NewPCG(42, 42))
	counts := map[int64]int{}
	const trials = 5000
	for i := 0; i < trials; i++ {
		pool := make([]database.OpponentCandidate, len(cands))
		copy(pool, cands)
		for _, id := range pickOpponents(pool, nil, 3, rng) {
			counts[id]++
		}
	}
	// Each candidate is expected trials*3/10 = 1500 times.
	for id, n := range counts {
		if n < 1300 || n > 1700 {
			t.Errorf("candidate %d picked %d times, expected about 1500", id, n)
		}
	}
}

func TestSelectExcludesSubject(t *testing.T) {
	db := openTestDB(t)
	ids := addArticles(t, db, 3)
	s := NewOpponentSelector(db, rand.New(rand.NewPCG(3, 3)))

	opps, err := s.Select(ids[0], nil, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 2 {
		t.Fatalf("expected 2 opponents, got %d", len(opps))
	}
	for _, o := range opps {
		if o.ID == ids[0] {
			t.Error("subject must not be its own opponent")
		}
	}
}
