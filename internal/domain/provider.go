package domain

import "context"

// Provider resolves a platform URL into downloaded local files through one
// specific third-party helper service or scraping technique. Providers are
// stateless between calls; retrying a different provider is the
// orchestrator's job, not the provider's.
type Provider interface {
	// Name identifies the provider in logs and attempt records.
	Name() string

	// TryFetch attempts the full resolve-and-download for one request.
	// A nil error means the result's files exist on disk.
	TryFetch(ctx context.Context, req DownloadRequest) (*DownloadResult, error)
}

// EngineOptions carries per-call overrides for the extraction engine.
type EngineOptions struct {
	// ForceCompatibleCodec forces a transcode to H.264 when the upstream
	// stream uses a codec the chat client renders as a black screen.
	ForceCompatibleCodec bool
}

// ProbeInfo is the metadata returned by a pre-flight probe. Zero values mean
// the extractor did not report the field.
type ProbeInfo struct {
	Filesize int64 // bytes, 0 if unknown
	Title    string
	Duration float64 // seconds
	Uploader string
	Entries  int // >1 for multi-entry galleries (slideshow candidates)
}

// IsSlideshow reports whether probe metadata indicates a multi-image gallery
// rather than a video.
func (p *ProbeInfo) IsSlideshow() bool {
	return p != nil && p.Entries > 1 && p.Duration == 0
}

// Engine is the blocking extraction engine boundary. Implementations wrap a
// general-purpose media extractor and run downloads on a bounded worker pool.
type Engine interface {
	// Probe extracts metadata without writing any file. Probe failures are
	// advisory: callers proceed to Fetch anyway (fail-open).
	Probe(ctx context.Context, url string, kind MediaKind) (*ProbeInfo, error)

	// Fetch performs the real download and returns local file paths.
	Fetch(ctx context.Context, url string, kind MediaKind, opts EngineOptions) (*DownloadResult, error)
}
