package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 10*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(10))
}

func TestBackoffClampsAttempt(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, p.Backoff(1), p.Backoff(0))
	assert.Equal(t, p.Backoff(1), p.Backoff(-5))
}

func TestRetryable(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.False(t, p.Retryable(nil))
	assert.True(t, p.Retryable(Failf(FailNetwork, "connection reset")))
	assert.True(t, p.Retryable(Failf(FailRateLimited, "429")))
	assert.False(t, p.Retryable(Failf(FailTooLarge, "120 MB")))
	assert.False(t, p.Retryable(Failf(FailUnavailable, "private")))
	assert.False(t, p.Retryable(Failf(FailAgeRestricted, "sign in")))
	assert.False(t, p.Retryable(Failf(FailRegionBlocked, "geo")))
}
