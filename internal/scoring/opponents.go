package scoring

import (
	"math/rand/v2"
	"sync"

	"github.com/TobiSchelling/reader/internal/database"
)

// OpponentSelector picks the articles a subject is compared against.
type OpponentSelector struct {
	db *database.DB

	mu  sync.Mutex
	rng *rand.Rand
}

// NewOpponentSelector creates a selector. A nil rng seeds one randomly.
func NewOpponentSelector(db *database.DB, rng *rand.Rand) *OpponentSelector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &OpponentSelector{db: db, rng: rng}
}

// Select returns up to count opponents for the subject, preferring articles
// scored under generationID and backfilling from the rest. An empty corpus
// yields no opponents and no error.
func (s *OpponentSelector) Select(subjectID int64, generationID *int64, count int) ([]database.Article, error) {
	candidates, err := s.db.ListOpponentCandidates(subjectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	ids := pickOpponents(candidates, generationID, count, s.rng)
	s.mu.Unlock()

	opponents := make([]database.Article, 0, len(ids))
	for _, id := range ids {
		a, err := s.db.GetArticleByID(id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			opponents = append(opponents, *a)
		}
	}
	return opponents, nil
}

// pickOpponents draws uniformly without replacement, current generation first.
func pickOpponents(candidates []database.OpponentCandidate, generationID *int64, count int, rng *rand.Rand) []int64 {
	if count <= 0 {
		return nil
	}

	var current, rest []int64
	for _, c := range candidates {
		if generationID != nil && c.GenerationID != nil && *c.GenerationID == *generationID {
			current = append(current, c.ID)
		} else {
			rest = append(rest, c.ID)
		}
	}

	picked := draw(current, count, rng)
	if len(picked) < count {
		picked = append(picked, draw(rest, count-len(picked), rng)...)
	}
	return picked
}

func draw(pool []int64, n int, rng *rand.Rand) []int64 {
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}
