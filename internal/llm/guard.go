package llm

import (
	"context"
	"fmt"
	"ithakabot/internal/metrics"
	"time"

	"golang.org/x/sync/semaphore"
)

// Guard bounds calls to another generator with a per-call timeout and a
// process-wide concurrency limit. Every failure wraps ErrUnavailable.
type Guard struct {
	next     TextGenerator
	provider string
	timeout  time.Duration
	sem      *semaphore.Weighted
	metrics  *metrics.Metrics
}

// NewGuard wraps next
func NewGuard(next TextGenerator, provider string, timeout time.Duration, maxConcurrent int64, m *metrics.Metrics) *Guard {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Guard{
		next:     next,
		provider: provider,
		timeout:  timeout,
		sem:      semaphore.NewWeighted(maxConcurrent),
		metrics:  m,
	}
}

func (g *Guard) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: failed to acquire concurrency slot: %w", ErrUnavailable, err)
	}
	defer g.sem.Release(1)

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Generate(callCtx, req)
	g.metrics.ObserveGenerate(g.provider, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, g.provider, err)
	}
	return text, nil
}
