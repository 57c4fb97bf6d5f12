package domain

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind is the closed classification of download failures. It flows
// from the engine and the scraper adapters up through the orchestrator to
// the caller without translation loss.
type FailureKind string

const (
	FailTooLarge        FailureKind = "too_large"
	FailUnavailable     FailureKind = "unavailable_or_private"
	FailAgeRestricted   FailureKind = "age_restricted"
	FailRateLimited     FailureKind = "rate_limited"
	FailRegionBlocked   FailureKind = "region_blocked"
	FailExtractorBroken FailureKind = "extractor_broken"
	FailNetwork         FailureKind = "network_error"
	FailParse           FailureKind = "parse_error"
	FailTimeout         FailureKind = "timeout"
	FailUnknown         FailureKind = "unknown"
)

// Permanent reports whether retrying or falling back to another provider
// cannot change the outcome. Permanent failures stop the fallback chain.
func (k FailureKind) Permanent() bool {
	switch k {
	case FailTooLarge, FailUnavailable, FailAgeRestricted, FailRegionBlocked:
		return true
	}
	return false
}

// DownloadError is the failure arm of a download outcome. Every error that
// crosses the orchestrator boundary is one of these.
type DownloadError struct {
	Kind   FailureKind
	Detail string
	Err    error // underlying cause, may be nil
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Failf creates a classified download error.
func Failf(kind FailureKind, format string, args ...interface{}) *DownloadError {
	return &DownloadError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// FailWrap wraps an underlying error with a classification.
func FailWrap(kind FailureKind, err error, detail string) *DownloadError {
	return &DownloadError{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the failure kind from an error, defaulting to FailUnknown
// for anything that is not a classified DownloadError.
func KindOf(err error) FailureKind {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}
	return FailUnknown
}
