package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Paced wraps a Judge with a per-call timeout and a minimum interval
// between calls shared by all callers.
type Paced struct {
	judge   Judge
	limiter *rate.Limiter
	timeout time.Duration
}

// NewPaced wraps j. A zero minInterval disables pacing and a zero timeout
// leaves the caller's deadline alone.
func NewPaced(j Judge, minInterval, timeout time.Duration) *Paced {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Paced{judge: j, limiter: rate.NewLimiter(limit, 1), timeout: timeout}
}

func (p *Paced) Name() string { return p.judge.Name() }

// Generate waits for its turn, then calls the wrapped judge under the timeout.
func (p *Paced) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.judge.Generate(ctx, prompt, maxTokens)
}

// Check forwards to the wrapped judge when it supports checking.
func (p *Paced) Check(ctx context.Context) error {
	if c, ok := p.judge.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}
