package service

import (
	"context"
	"sync"

	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// LocalMutationGuard is an in-process domain.MutationGuard for single-instance deployments
type LocalMutationGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalMutationGuard creates a new LocalMutationGuard
func NewLocalMutationGuard() *LocalMutationGuard {
	return &LocalMutationGuard{held: make(map[string]struct{})}
}

// Acquire takes key or fails with ErrConflict when another call holds it.
// The returned release func is safe to call more than once.
func (g *LocalMutationGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, domain.ErrConflict
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
