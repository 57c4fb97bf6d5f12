package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

// URLNormalizer rewrites share links into their canonical form. Failures
// leave the URL unchanged, so it never returns an error.
type URLNormalizer interface {
	Normalize(ctx context.Context, rawURL string, platform domain.Platform) string
}

// Providers bundles the fallback chain members by name.
type Providers struct {
	Cobalt       domain.Provider
	TikWM        domain.Provider
	SnapSave     domain.Provider
	SaveFrom     domain.Provider
	FbDownloader domain.Provider
	Pinterest    domain.Provider
}

// Orchestrator routes a download request through the per-platform provider
// chain, falling back until one succeeds or a permanent failure stops it.
type Orchestrator struct {
	engine      domain.Engine
	normalizer  URLNormalizer
	providers   Providers
	maxFileSize int64
	logger      *zap.Logger
}

// NewOrchestrator creates a new download orchestrator
func NewOrchestrator(engine domain.Engine, normalizer URLNormalizer, providers Providers, maxFileSize int64, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		engine:      engine,
		normalizer:  normalizer,
		providers:   providers,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Download validates, normalizes, and resolves a request through the chain
// for its platform. On total failure the first specific error is surfaced,
// since the leading provider's diagnosis usually names the real cause.
func (o *Orchestrator) Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if !domain.ValidateKind(req.Kind) {
		return nil, domain.Failf(domain.FailUnknown, "invalid media kind %q", req.Kind)
	}

	platform := domain.DetectPlatform(req.URL)
	if o.normalizer != nil {
		req.URL = o.normalizer.Normalize(ctx, req.URL, platform)
	}

	chain := o.chainFor(platform, req.Kind)

	var firstErr, lastErr error
	for _, provider := range chain {
		result, err := provider.TryFetch(ctx, req)
		if err == nil {
			o.logger.Info("download resolved",
				zap.String("provider", provider.Name()),
				zap.String("platform", string(platform)),
				zap.String("kind", string(req.Kind)))
			return result, nil
		}

		kind := domain.KindOf(err)
		o.logger.Warn("provider failed",
			zap.String("provider", provider.Name()),
			zap.String("failure", string(kind)),
			zap.Error(err))

		if kind.Permanent() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "download cancelled")
		}
		if firstErr == nil && kind != domain.FailUnknown {
			firstErr = err
		}
		lastErr = err
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domain.Failf(domain.FailUnknown, "no provider could handle %s", req.URL)
}

// chainFor builds the ordered provider chain for a platform and media kind.
// The extraction engine terminates every chain it appears in.
func (o *Orchestrator) chainFor(platform domain.Platform, kind domain.MediaKind) []domain.Provider {
	engine := func(opts domain.EngineOptions) domain.Provider {
		return &engineProvider{orch: o, opts: opts}
	}

	switch {
	case platform == domain.PlatformTikTok && kind == domain.KindVideo:
		// TikTok streams HEVC by default, so the engine path forces a
		// compatible transcode when the scrapers fall through.
		return compact(
			o.providers.Cobalt,
			o.providers.TikWM,
			engine(domain.EngineOptions{ForceCompatibleCodec: true}),
		)
	case platform == domain.PlatformTikTok:
		return []domain.Provider{engine(domain.EngineOptions{})}
	case platform == domain.PlatformFacebook && kind == domain.KindVideo:
		return compact(
			o.providers.SnapSave,
			o.providers.SaveFrom,
			o.providers.FbDownloader,
			engine(domain.EngineOptions{}),
		)
	case platform == domain.PlatformPinterest && kind == domain.KindVideo:
		return compact(o.providers.Pinterest)
	default:
		return []domain.Provider{engine(domain.EngineOptions{})}
	}
}

// compact drops nil providers so a partially wired chain still works.
func compact(providers ...domain.Provider) []domain.Provider {
	out := make([]domain.Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// engineProvider adapts the extraction engine to the provider interface,
// adding the pre-flight probe.
type engineProvider struct {
	orch *Orchestrator
	opts domain.EngineOptions
}

// Name identifies the provider
func (e *engineProvider) Name() string { return "engine" }

// TryFetch probes first where it pays off, then runs the full extraction.
// The probe rejects oversized media before any bytes move and detects
// slideshow posts, which download as image sets. Audio requests skip the
// probe because the post-transcode size is unknowable up front, and TikTok
// skips it because its probe frequently fails where the download succeeds.
func (e *engineProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	kind := req.Kind
	platform := domain.DetectPlatform(req.URL)

	if kind != domain.KindAudio && platform != domain.PlatformTikTok {
		info, err := e.orch.engine.Probe(ctx, req.URL, kind)
		if err != nil || info == nil {
			e.orch.logger.Debug("probe failed, downloading blind", zap.Error(err))
		} else {
			if e.orch.maxFileSize > 0 && info.Filesize > e.orch.maxFileSize {
				return nil, domain.Failf(domain.FailTooLarge,
					"media is %d MB, limit is %d MB",
					info.Filesize/(1024*1024), e.orch.maxFileSize/(1024*1024))
			}
			if info.IsSlideshow() {
				kind = domain.KindPhoto
			}
		}
	}

	return e.orch.engine.Fetch(ctx, req.URL, kind, e.opts)
}
