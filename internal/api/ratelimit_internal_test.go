package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.sr.ht/~jakintosh/rallyauth/internal/logging"
)

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(10, time.Minute, logging.Discard())
	t.Cleanup(rl.Stop)

	// setup limiter
	rl.Allow("198.51.100.1")
	rl.Allow("198.51.100.2")
	assert.Equal(t, 2, rl.clients())

	// recent clients stay
	rl.cleanup(time.Now())
	assert.Equal(t, 2, rl.clients())

	// idle clients are dropped
	rl.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.clients())
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	t.Parallel()

	// one request refills every window/requests
	rl := NewRateLimiter(100, 15*time.Minute, logging.Discard())
	t.Cleanup(rl.Stop)
	assert.Equal(t, 9, rl.retryAfter())

	// never below one second
	fast := NewRateLimiter(1000, time.Second, logging.Discard())
	t.Cleanup(fast.Stop)
	assert.Equal(t, 1, fast.retryAfter())

	// stopping twice is safe
	fast.Stop()
}
