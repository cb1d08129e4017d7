package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/tpm-platform/allocation-engine/internal/config"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

const releaseTimeout = 2 * time.Second

// RedisMutationGuard implements domain.MutationGuard with Redis locks shared by every
// API instance. Locks expire after ttl so a crashed holder cannot block an allocation.
type RedisMutationGuard struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewRedisMutationGuard creates a guard on an existing client
func NewRedisMutationGuard(client redis.UniversalClient, ttl time.Duration) *RedisMutationGuard {
	return &RedisMutationGuard{
		locker: redislock.New(client),
		ttl:    ttl,
	}
}

// Connect opens a Redis client from cfg and verifies it with a ping
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Address, err)
	}
	return client, nil
}

// Acquire obtains key without retrying; a held key yields ErrConflict
func (g *RedisMutationGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := g.locker.Obtain(ctx, key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("obtain mutation lock %s: %w", key, err)
	}

	return func() {
		// The request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("Failed to release mutation lock")
		}
	}, nil
}
