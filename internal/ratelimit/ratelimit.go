// Package ratelimit paces outbound provider calls with a shared token bucket.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const (
	// DefaultPerSecond is the steady refill applied to every provider call.
	DefaultPerSecond = 500
	// DefaultBurst bounds how many calls may be admitted back-to-back.
	DefaultBurst = 5
)

// Limiter admits outbound calls from a token bucket. Wait blocks until a token
// is available; it never drops.
type Limiter struct {
	bucket *rate.Limiter
}

func New(perSecond float64, burst int) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

var (
	sharedOnce sync.Once
	shared     *Limiter
)

// Shared returns the process-wide limiter. All clients built without an
// explicit limiter pace through this one bucket, regardless of provider.
func Shared() *Limiter {
	sharedOnce.Do(func() {
		shared = New(DefaultPerSecond, DefaultBurst)
	})
	return shared
}
