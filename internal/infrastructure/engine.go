package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

// userAgents are rotated across download attempts.
var userAgents = []string{
	defaultUserAgent,
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Mobile/15E148 Safari/604.1",
}

// youtubeClientRotations are the internal client personas the extractor
// presents to YouTube, reordered per attempt. The persona list tracks
// upstream bot-detection changes and is expected to need updates over time.
var youtubeClientRotations = []string{
	"youtube:player_client=tv,android_sdkless,web_safari",
	"youtube:player_client=android_sdkless,tv,ios",
	"youtube:player_client=ios,android_sdkless,tv",
}

// candidateExtensions are searched when post-processing changed the on-disk
// extension from the predicted one.
var candidateExtensions = []string{"mp4", "m4a", "mkv", "webm", "mp3", "mov", "opus"}

// ExtractionEngine wraps the general-purpose media extractor. Probing reads
// metadata without touching disk; fetching performs the real download on the
// shared worker pool with bounded retries.
type ExtractionEngine struct {
	cfg         *domain.EngineConfig
	downloadDir string
	maxFileSize int64
	cookieFile  string
	pool        *WorkerPool
	fetcher     *DirectFetcher
	retry       domain.RetryPolicy
	logger      *zap.Logger
}

// NewExtractionEngine creates a new extraction engine. The cookie file, when
// configured from a read-only mount, is copied once to a writable scratch
// location (the extractor rewrites it on rotation).
func NewExtractionEngine(
	cfg *domain.EngineConfig,
	downloadDir string,
	maxFileSize int64,
	pool *WorkerPool,
	fetcher *DirectFetcher,
	logger *zap.Logger,
) *ExtractionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &ExtractionEngine{
		cfg:         cfg,
		downloadDir: downloadDir,
		maxFileSize: maxFileSize,
		pool:        pool,
		fetcher:     fetcher,
		retry:       domain.DefaultRetryPolicy(),
		logger:      logger,
	}
	e.cookieFile = e.ensureWritableCookies(cfg.CookieFile)
	return e
}

// probePayload is the subset of the extractor's info JSON the engine reads.
type probePayload struct {
	Title          string       `json:"title"`
	Duration       float64      `json:"duration"`
	Uploader       string       `json:"uploader"`
	Filesize       int64        `json:"filesize"`
	FilesizeApprox int64        `json:"filesize_approx"`
	Ext            string       `json:"ext"`
	Entries        []probeEntry `json:"entries"`
}

type probeEntry struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

// Probe extracts metadata without downloading. Callers treat a probe error
// as "proceed anyway": streaming enforcement still protects against
// oversized files.
func (e *ExtractionEngine) Probe(ctx context.Context, url string, kind domain.MediaKind) (*domain.ProbeInfo, error) {
	payload, err := e.probePayload(ctx, url, kind)
	if err != nil {
		return nil, err
	}

	info := &domain.ProbeInfo{
		Title:    payload.Title,
		Duration: payload.Duration,
		Uploader: payload.Uploader,
		Entries:  len(payload.Entries),
	}
	info.Filesize = payload.Filesize
	if info.Filesize == 0 {
		info.Filesize = payload.FilesizeApprox
	}
	return info, nil
}

func (e *ExtractionEngine) probePayload(ctx context.Context, url string, kind domain.MediaKind) (*probePayload, error) {
	opts := e.buildFetchOptions(url, kind, 1, domain.EngineOptions{})
	opts.probeOnly = true

	var (
		res    *ytdlp.Result
		runErr error
	)
	if err := e.pool.Do(ctx, func() {
		dl := ytdlp.New()
		opts.apply(dl)
		res, runErr = dl.Run(ctx, url)
	}); err != nil {
		return nil, domain.FailWrap(domain.FailTimeout, err, "probe did not run")
	}
	if runErr != nil {
		return nil, e.classifyRun(ctx, res, runErr, "probe failed")
	}

	var payload probePayload
	if err := json.Unmarshal([]byte(res.Stdout), &payload); err != nil {
		return nil, domain.FailWrap(domain.FailParse, err, "unexpected probe output")
	}
	return &payload, nil
}

// Fetch performs the real download with bounded attempts, rotating the
// outbound User-Agent and (for YouTube) the client persona between attempts.
func (e *ExtractionEngine) Fetch(ctx context.Context, url string, kind domain.MediaKind, engOpts domain.EngineOptions) (*domain.DownloadResult, error) {
	if kind == domain.KindPhoto {
		return e.fetchSlideshow(ctx, url)
	}

	var lastErr error
	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(e.retry.Backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "download cancelled")
			}
		}

		result, err := e.fetchOnce(ctx, url, kind, attempt, engOpts)
		if err == nil {
			return result, nil
		}
		if !e.retry.Retryable(err) {
			return nil, err
		}
		lastErr = err
		e.logger.Warn("extractor attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.retry.MaxAttempts),
			zap.Error(err))
	}
	return nil, lastErr
}

func (e *ExtractionEngine) fetchOnce(ctx context.Context, url string, kind domain.MediaKind, attempt int, engOpts domain.EngineOptions) (*domain.DownloadResult, error) {
	opts := e.buildFetchOptions(url, kind, attempt, engOpts)

	if err := os.MkdirAll(e.downloadDir, 0755); err != nil {
		return nil, domain.FailWrap(domain.FailUnknown, err, "creating download directory")
	}

	started := time.Now()
	var (
		res    *ytdlp.Result
		runErr error
	)
	if err := e.pool.Do(ctx, func() {
		dl := ytdlp.New()
		opts.apply(dl)
		res, runErr = dl.Run(ctx, url)
	}); err != nil {
		return nil, domain.FailWrap(domain.FailTimeout, err, "download did not run")
	}
	if runErr != nil {
		return nil, e.classifyRun(ctx, res, runErr, "extractor failed")
	}

	path, err := e.resolveArtifact(opts.outputBase, opts.predictedExt, started)
	if err != nil {
		return nil, err
	}

	result := &domain.DownloadResult{
		Kind:  domain.ResultSingleFile,
		Paths: []string{path},
	}
	// Metadata rides along on the same run's JSON dump when available.
	var payload probePayload
	if json.Unmarshal([]byte(res.Stdout), &payload) == nil {
		result.Title = payload.Title
		result.Duration = int(payload.Duration)
		result.Uploader = payload.Uploader
	}

	e.logger.Info("extractor download complete",
		zap.String("file", filepath.Base(path)),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}

// fetchSlideshow downloads every image entry of a multi-image post into a
// dedicated sub-directory.
func (e *ExtractionEngine) fetchSlideshow(ctx context.Context, url string) (*domain.DownloadResult, error) {
	payload, err := e.probePayload(ctx, url, domain.KindPhoto)
	if err != nil {
		return nil, err
	}
	if len(payload.Entries) == 0 {
		return nil, domain.Failf(domain.FailParse, "post has no image entries")
	}

	dir := filepath.Join(e.downloadDir, "slideshow_"+uuid.New().String()[:8])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.FailWrap(domain.FailUnknown, err, "creating slideshow directory")
	}

	var paths []string
	for i, entry := range payload.Entries {
		if entry.URL == "" {
			continue
		}
		ext := entry.Ext
		if ext == "" {
			ext = "jpg"
		}
		dest := filepath.Join(dir, fmt.Sprintf("%03d.%s", i+1, ext))
		if _, err := e.fetcher.Fetch(ctx, entry.URL, dest, nil); err != nil {
			// A failed slideshow is all-or-nothing: remove what was written.
			for _, p := range paths {
				os.Remove(p)
			}
			os.Remove(dir)
			return nil, err
		}
		paths = append(paths, dest)
	}
	if len(paths) == 0 {
		return nil, domain.Failf(domain.FailParse, "no downloadable image entries")
	}

	return &domain.DownloadResult{
		Kind:     domain.ResultSlideshow,
		Paths:    paths,
		Title:    payload.Title,
		Uploader: payload.Uploader,
	}, nil
}

// resolveArtifact locates the downloaded file. Post-processing may change
// the extension from the predicted one, so on a miss the engine searches
// sibling candidate extensions and finally falls back to the most recently
// created file in the download directory.
func (e *ExtractionEngine) resolveArtifact(base, predictedExt string, since time.Time) (string, error) {
	predicted := filepath.Join(e.downloadDir, base+"."+predictedExt)
	if fileExists(predicted) {
		return predicted, nil
	}

	for _, ext := range candidateExtensions {
		candidate := filepath.Join(e.downloadDir, base+"."+ext)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	// Last resort: newest file created since the download started (bounded
	// to the last minute so concurrent requests don't cross wires).
	cutoff := since.Add(-time.Minute)
	entries, err := os.ReadDir(e.downloadDir)
	if err != nil {
		return "", domain.FailWrap(domain.FailUnknown, err, "reading download directory")
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) && info.ModTime().After(newestTime) && strings.HasPrefix(entry.Name(), base) {
			newest = filepath.Join(e.downloadDir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", domain.Failf(domain.FailUnknown, "file not found after download")
	}
	return newest, nil
}

// classifyRun maps an extractor failure onto the closed taxonomy. This is
// the single place where the extractor's unstable message strings are
// pattern-matched; anything unrecognized degrades to unknown.
func (e *ExtractionEngine) classifyRun(ctx context.Context, res *ytdlp.Result, runErr error, detail string) error {
	if ctx.Err() != nil {
		return domain.FailWrap(domain.FailTimeout, ctx.Err(), detail)
	}
	msg := runErr.Error()
	if res != nil && res.Stderr != "" {
		msg += "\n" + res.Stderr
	}
	return domain.FailWrap(classifyExtractorMessage(msg), runErr, detail)
}

// classifyExtractorMessage matches known upstream error signatures. The
// signatures are not contractually stable; unmatched text lands in
// FailUnknown rather than failing classification.
func classifyExtractorMessage(msg string) domain.FailureKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "file is larger than"),
		strings.Contains(lower, "max-filesize"),
		strings.Contains(lower, "too large"):
		return domain.FailTooLarge
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "this post is unavailable"),
		strings.Contains(lower, "account is private"),
		strings.Contains(lower, "has been removed"):
		return domain.FailUnavailable
	case strings.Contains(lower, "sign in to confirm your age"),
		strings.Contains(lower, "age-restricted"),
		strings.Contains(lower, "age restricted"):
		return domain.FailAgeRestricted
	case strings.Contains(lower, "http error 429"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "rate-limit"):
		return domain.FailRateLimited
	case strings.Contains(lower, "http error 403"),
		strings.Contains(lower, "available in your country"),
		strings.Contains(lower, "geo restriction"):
		return domain.FailRegionBlocked
	case strings.Contains(lower, "failed to extract"),
		strings.Contains(lower, "unable to extract"),
		strings.Contains(lower, "unsupported url"):
		return domain.FailExtractorBroken
	case strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"):
		return domain.FailTimeout
	case strings.Contains(lower, "unable to download"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"):
		return domain.FailNetwork
	default:
		return domain.FailUnknown
	}
}

// ensureWritableCookies returns a usable cookie file path. A cookie file on
// a read-only mount is copied once to a writable scratch location because
// the extractor rewrites it on session rotation.
func (e *ExtractionEngine) ensureWritableCookies(path string) string {
	if path == "" || !fileExists(path) {
		return ""
	}
	if f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		f.Close()
		return path
	}

	scratch := filepath.Join(os.TempDir(), "mediagrab-cookies-"+uuid.New().String()[:8]+".txt")
	if err := copyFile(path, scratch); err != nil {
		e.logger.Warn("cookie scratch copy failed, continuing without cookies",
			zap.String("source", path), zap.Error(err))
		return ""
	}
	e.logger.Info("cookie file copied to writable scratch",
		zap.String("source", path), zap.String("scratch", scratch))
	return scratch
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
