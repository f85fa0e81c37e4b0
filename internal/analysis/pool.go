package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

// Pool bounds how many messages are analyzed at once. Analyses are
// I/O-bound (reputation and DNS lookups), so a small slot count keeps
// upstream rate limits happy without serializing the whole mailbox.
type Pool struct {
	service *Service
	logger  *zap.Logger
	slots   chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given concurrency and per-message
// deadline.
func NewPool(service *Service, logger *zap.Logger, maxConcurrency int, perMessageTimeout time.Duration) *Pool {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	if perMessageTimeout <= 0 {
		perMessageTimeout = 30 * time.Second
	}
	return &Pool{
		service: service,
		logger:  logger,
		slots:   make(chan struct{}, maxConcurrency),
		timeout: perMessageTimeout,
	}
}

// Process analyzes one message under the pool's concurrency bound and
// per-message deadline. Blocks for a slot; a cancelled ctx while waiting
// returns the ctx error without running the analysis.
func (p *Pool) Process(ctx context.Context, email *core.NormalizedEmail) (*core.SecurityAnalysis, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.wg.Add(1)
	defer func() {
		<-p.slots
		p.wg.Done()
	}()

	mctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.service.AnalyzeEmail(mctx, email)
}

// Submit analyzes a message asynchronously and hands the outcome to done.
func (p *Pool) Submit(ctx context.Context, email *core.NormalizedEmail, done func(*core.SecurityAnalysis, error)) {
	go func() {
		analysis, err := p.Process(ctx, email)
		if done != nil {
			done(analysis, err)
		}
	}()
}

// Wait blocks until every in-flight analysis has finished. Used for
// graceful shutdown.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// InFlight reports how many analyses are currently running.
func (p *Pool) InFlight() int {
	return len(p.slots)
}
