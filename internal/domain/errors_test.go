package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKindPermanent(t *testing.T) {
	permanent := []FailureKind{FailTooLarge, FailUnavailable, FailAgeRestricted, FailRegionBlocked}
	transient := []FailureKind{FailRateLimited, FailExtractorBroken, FailNetwork, FailParse, FailTimeout, FailUnknown}

	for _, k := range permanent {
		assert.True(t, k.Permanent(), "%s should be permanent", k)
	}
	for _, k := range transient {
		assert.False(t, k.Permanent(), "%s should not be permanent", k)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailureKind
	}{
		{
			name:     "classified error",
			err:      Failf(FailTooLarge, "file is 120 MB"),
			expected: FailTooLarge,
		},
		{
			name:     "wrapped classified error",
			err:      fmt.Errorf("provider failed: %w", Failf(FailRateLimited, "429")),
			expected: FailRateLimited,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: FailTimeout,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: FailUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestFailWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := FailWrap(FailNetwork, cause, "fetching media")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "network_error")
	assert.Contains(t, err.Error(), "fetching media")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFailfWithoutCause(t *testing.T) {
	err := Failf(FailUnavailable, "video %s is private", "abc")
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "unavailable_or_private: video abc is private", err.Error())
}
