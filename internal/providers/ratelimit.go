package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing provider requests with a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter

	mu            sync.Mutex
	totalConsumed int64
	totalWaited   time.Duration
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	TokensAvailable   float64       `json:"tokens_available"`
	TotalConsumed     int64         `json:"total_consumed"`
	TotalWaited       time.Duration `json:"total_waited"`
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of one second's worth of requests. rps <= 0 disables limiting.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := RateLimiterStatus{
		TotalConsumed: r.totalConsumed,
		TotalWaited:   r.totalWaited,
	}
	// Unlimited reports zero so the status stays JSON-encodable.
	if r.limiter.Limit() != rate.Inf {
		status.RequestsPerSecond = float64(r.limiter.Limit())
		status.TokensAvailable = r.limiter.Tokens()
	}
	return status
}
