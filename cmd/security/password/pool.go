package password

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool runs Hash and Verify with at most cfg.Workers derivations in flight.
// Waiting callers give up when their context is done.
type Pool struct {
	cfg Config
	sem *semaphore.Weighted
}

// NewPool returns a Pool for cfg. Workers <= 0 means one worker.
func NewPool(cfg Config) *Pool {
	n := cfg.Workers
	if n <= 0 {
		n = 1
	}
	return &Pool{cfg: cfg, sem: semaphore.NewWeighted(int64(n))}
}

// Config returns the hashing configuration used by the pool.
func (p *Pool) Config() Config { return p.cfg }

// Hash is Config.Hash behind the pool.
func (p *Pool) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	return p.cfg.Hash(plaintext)
}

// Verify is Config.Verify behind the pool.
func (p *Pool) Verify(ctx context.Context, encodedHash, plaintext string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	return p.cfg.Verify(encodedHash, plaintext)
}
