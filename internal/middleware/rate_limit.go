package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default rate limit per minute
	DefaultRateLimit = 100
	// DefaultBurstSize is the default burst size
	DefaultBurstSize = 10
	// CleanupInterval is the interval for cleaning up stale limiters
	CleanupInterval = 5 * time.Minute
	// LimiterTTL is the time-to-live for inactive limiters
	LimiterTTL = 10 * time.Minute
)

// RateLimiter manages per-tenant token buckets for mutating requests.
// Routes can be weighted so that a distribute costs more than a rename.
type RateLimiter struct {
	limiters          map[int32]*limiterEntry
	routeCosts        map[string]int
	mu                sync.RWMutex
	requestsPerMinute int
	rateLimit         float64
	burstSize         int
	stopCh            chan struct{}
	stopOnce          sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new RateLimiter with default settings
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimit, DefaultBurstSize)
}

// NewRateLimiterWithConfig creates a RateLimiter with custom configuration
func NewRateLimiterWithConfig(requestsPerMinute int, burstSize int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRateLimit
	}
	if burstSize <= 0 {
		burstSize = DefaultBurstSize
	}

	rl := &RateLimiter{
		limiters:          make(map[int32]*limiterEntry),
		routeCosts:        make(map[string]int),
		requestsPerMinute: requestsPerMinute,
		rateLimit:         float64(requestsPerMinute) / 60.0, // per second
		burstSize:         burstSize,
		stopCh:            make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// SetRouteCost makes requests to the echo route path consume cost tokens.
// Costs are capped at the burst size so a weighted route is never unreachable.
func (r *RateLimiter) SetRouteCost(path string, cost int) {
	if cost < 1 {
		cost = 1
	}
	if cost > r.burstSize {
		cost = r.burstSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routeCosts[path] = cost
}

// CostOf returns the token cost of a route path
func (r *RateLimiter) CostOf(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cost, ok := r.routeCosts[path]; ok {
		return cost
	}
	return 1
}

// Allow checks if a single-token request from the given tenant is allowed
func (r *RateLimiter) Allow(tenantID int32) bool {
	return r.AllowN(tenantID, 1)
}

// AllowN checks if a request costing n tokens from the given tenant is allowed
func (r *RateLimiter) AllowN(tenantID int32, n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, exists := r.limiters[tenantID]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(r.rateLimit), r.burstSize),
		}
		r.limiters[tenantID] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, n)
}

// GetState returns the current state for rate limit headers
func (r *RateLimiter) GetState(tenantID int32) (remaining int, resetTime time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.limiters[tenantID]
	if !exists {
		return r.burstSize, time.Now().Add(time.Minute)
	}

	// Approximation
	tokens := int(entry.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}

	resetDuration := time.Duration(float64(r.burstSize-tokens)/r.rateLimit) * time.Second
	return tokens, time.Now().Add(resetDuration)
}

// cleanup periodically removes stale limiters
func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(time.Now())
		case <-r.stopCh:
			return
		}
	}
}

func (r *RateLimiter) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tenantID, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > LimiterTTL {
			delete(r.limiters, tenantID)
			log.Debug().Int32("tenant_id", tenantID).Msg("Cleaned up stale rate limiter")
		}
	}
}

// Stop stops the cleanup goroutine; calling it again is a no-op
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// RateLimitMiddleware returns an Echo middleware that rate limits mutating requests per tenant.
// Safe methods and requests without a tenant pass through.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			tenantID := GetTenantID(c)
			if tenantID == 0 {
				return next(c)
			}

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMinute))

			cost := rl.CostOf(c.Path())
			if !rl.AllowN(tenantID, cost) {
				_, resetTime := rl.GetState(tenantID)
				retryAfter := int(time.Until(resetTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				header.Set("X-RateLimit-Remaining", "0")
				header.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
				header.Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().
					Int32("tenant_id", tenantID).
					Str("route", c.Path()).
					Int("cost", cost).
					Int("retry_after", retryAfter).
					Msg("Rate limit exceeded")

				return tooManyRequestsError(c, retryAfter)
			}

			remaining, resetTime := rl.GetState(tenantID)
			header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			return next(c)
		}
	}
}
