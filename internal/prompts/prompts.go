// Package prompts holds the seed scoring criteria that the refinement loop
// evolves over time.
package prompts

import (
	"fmt"

	"github.com/TobiSchelling/reader/internal/database"
	"go.uber.org/zap"
)

// DefaultCriteria is the text of generation 1.
const DefaultCriteria = `You are helping curate a reading list for a software engineering manager with deep technical interests.

Interests (weighted by relevance):
- Systems programming, low-level performance, kernel work
- Weather/meteorology APIs and data processing
- Engineering management frameworks and practices
- Rust, distributed systems, infrastructure
- Deep technical explanations over surface-level news
- Long-form analysis over breaking news hot-takes

Dislikes:
- Product announcements unless they reveal interesting technical decisions
- Political hot-takes and inflammatory content
- Duplicate coverage of the same story
- Clickbait headlines
- Shallow "intro to X" content (senior-level reader)`

// EnsureActive returns the active generation, seeding generation 1 with
// DefaultCriteria when the store is empty.
func EnsureActive(db *database.DB) (*database.PromptGeneration, error) {
	active, err := db.GetActiveGeneration()
	if err != nil {
		return nil, fmt.Errorf("reading active generation: %w", err)
	}
	if active != nil {
		return active, nil
	}

	gens, err := db.ListGenerations()
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	if len(gens) > 0 {
		return nil, fmt.Errorf("%d generations stored but none active", len(gens))
	}

	id, err := db.CreateGeneration(DefaultCriteria, nil, 0, true)
	if err != nil {
		return nil, fmt.Errorf("seeding default generation: %w", err)
	}
	zap.S().Infof("Seeded default scoring criteria as generation %d", id)
	return db.GetGeneration(id)
}
