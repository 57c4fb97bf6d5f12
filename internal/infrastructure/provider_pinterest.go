package infrastructure

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

// Pin pages embed video URLs both as plain strings and JSON-escaped inside
// script blobs, so both spellings are matched and unescaped.
var (
	pinterestMP4Pattern  = regexp.MustCompile(`https:(?:\\u002F\\u002F|\\/\\/|//)(?:v\d*|video|i)\.pinimg\.com(?:\\u002F|\\/|/)[^\s"'<>]+?\.mp4`)
	pinterestM3U8Pattern = regexp.MustCompile(`https:(?:\\u002F\\u002F|\\/\\/|//)(?:v\d*|video|i)\.pinimg\.com(?:\\u002F|\\/|/)[^\s"'<>]+?\.m3u8`)
	pinterestTitle       = regexp.MustCompile(`<title>([^<]+)</title>`)
)

// PinterestProvider scrapes a pin page for a direct pinimg video URL. Pins
// that only expose an HLS manifest are handed to the extraction engine,
// which can remux the stream.
type PinterestProvider struct {
	client      *http.Client
	fetcher     *DirectFetcher
	engine      domain.Engine
	downloadDir string
	logger      *zap.Logger
}

// NewPinterestProvider creates a new Pinterest page scraper
func NewPinterestProvider(client *http.Client, fetcher *DirectFetcher, engine domain.Engine, downloadDir string, logger *zap.Logger) *PinterestProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PinterestProvider{
		client:      client,
		fetcher:     fetcher,
		engine:      engine,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// Name identifies the provider
func (p *PinterestProvider) Name() string { return "pinterest" }

// TryFetch downloads the pin page and extracts the highest-value media URL
// found in its markup.
func (p *PinterestProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if req.Kind != domain.KindVideo {
		return nil, domain.Failf(domain.FailUnknown, "pinterest scraper supports video only")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "building pinterest request")
	}
	httpReq.Header.Set("User-Agent", defaultUserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "pinterest cancelled")
		}
		return nil, domain.FailWrap(domain.FailNetwork, err, "pinterest request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, domain.Failf(domain.FailUnavailable, "pin not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.Failf(domain.FailNetwork, "pinterest returned HTTP %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "reading pin page")
	}
	html := string(page)

	title := "Pinterest video"
	if m := pinterestTitle.FindStringSubmatch(html); m != nil {
		title = strings.TrimSpace(m[1])
	}

	if raw := pinterestMP4Pattern.FindString(html); raw != "" {
		dest := filepath.Join(p.downloadDir, domain.ArtifactName(domain.PlatformPinterest, "mp4"))
		if _, err := p.fetcher.Fetch(ctx, unescapePinimgURL(raw), dest, nil); err != nil {
			return nil, err
		}
		return &domain.DownloadResult{
			Kind:     domain.ResultSingleFile,
			Paths:    []string{dest},
			Title:    title,
			Uploader: "Pinterest",
		}, nil
	}

	if raw := pinterestM3U8Pattern.FindString(html); raw != "" {
		// HLS manifests need segment stitching, which the engine handles.
		result, err := p.engine.Fetch(ctx, unescapePinimgURL(raw), domain.KindVideo, domain.EngineOptions{})
		if err != nil {
			return nil, err
		}
		if result.Title == "" {
			result.Title = title
		}
		return result, nil
	}

	return nil, domain.Failf(domain.FailParse, "no video url in pin page")
}

// unescapePinimgURL normalizes the JSON-escaped spellings back to a plain URL.
func unescapePinimgURL(raw string) string {
	raw = strings.ReplaceAll(raw, "\\u002F", "/")
	raw = strings.ReplaceAll(raw, `\/`, "/")
	return raw
}
