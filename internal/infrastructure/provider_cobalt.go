package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

// defaultCobaltEndpoints are public Cobalt v7 instances, most reliable first.
var defaultCobaltEndpoints = []string{
	"https://api.cobalt.tools/",
	"https://cobalt.tools/api/",
	"https://cobalt-api.kwiatekmiki.com/",
}

// cobaltRequest is the Cobalt API v7 request payload.
type cobaltRequest struct {
	URL           string `json:"url"`
	VideoQuality  string `json:"videoQuality"`
	AudioFormat   string `json:"audioFormat"`
	DownloadMode  string `json:"downloadMode"`
	FilenameStyle string `json:"filenameStyle"`
}

// cobaltResponse is the v7 envelope. Status discriminates the variant:
// "error", "redirect"/"tunnel" (one download URL), or "picker" (candidates).
type cobaltResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Picker []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"picker"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

// CobaltProvider resolves URLs through the Cobalt helper API and hands the
// byte transfer to the direct fetcher.
type CobaltProvider struct {
	client      *http.Client
	fetcher     *DirectFetcher
	downloadDir string
	endpoints   []string
	logger      *zap.Logger
}

// NewCobaltProvider creates a new Cobalt adapter
func NewCobaltProvider(client *http.Client, fetcher *DirectFetcher, downloadDir string, logger *zap.Logger) *CobaltProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CobaltProvider{
		client:      client,
		fetcher:     fetcher,
		downloadDir: downloadDir,
		endpoints:   defaultCobaltEndpoints,
		logger:      logger,
	}
}

// Name identifies the provider
func (p *CobaltProvider) Name() string { return "cobalt" }

// TryFetch posts the v7 payload to each endpoint in priority order and
// downloads the first resolvable media URL.
func (p *CobaltProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if req.Kind == domain.KindPhoto {
		return nil, domain.Failf(domain.FailUnknown, "cobalt does not support photo posts")
	}

	mode := "auto"
	ext := "mp4"
	if req.Kind == domain.KindAudio {
		mode = "audio"
		ext = "mp3"
	}
	payload, err := json.Marshal(cobaltRequest{
		URL:           req.URL,
		VideoQuality:  "1080",
		AudioFormat:   "mp3",
		DownloadMode:  mode,
		FilenameStyle: "basic",
	})
	if err != nil {
		return nil, domain.FailWrap(domain.FailUnknown, err, "encoding cobalt payload")
	}

	var firstErr error
	for _, endpoint := range p.endpoints {
		result, err := p.tryEndpoint(ctx, endpoint, payload, req, ext)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "cobalt cancelled")
		}
		if firstErr == nil {
			firstErr = err
		}
		p.logger.Debug("cobalt endpoint failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, domain.Failf(domain.FailNetwork, "all cobalt endpoints failed")
}

func (p *CobaltProvider) tryEndpoint(ctx context.Context, endpoint string, payload []byte, req domain.DownloadRequest, ext string) (*domain.DownloadResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "building cobalt request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", defaultUserAgent)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "cobalt request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.Failf(domain.FailRateLimited, "cobalt rate limited")
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, domain.Failf(domain.FailNetwork, "cobalt returned HTTP %d", resp.StatusCode)
	}

	var envelope cobaltResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.FailWrap(domain.FailParse, err, "decoding cobalt response")
	}

	downloadURL := ""
	switch envelope.Status {
	case "error":
		return nil, classifyCobaltError(envelope.Error.Code)
	case "redirect", "tunnel":
		downloadURL = envelope.URL
	case "picker":
		// Multi-item posts: take the first media candidate.
		for _, item := range envelope.Picker {
			if item.URL != "" {
				downloadURL = item.URL
				break
			}
		}
	default:
		return nil, domain.Failf(domain.FailParse, "unknown cobalt status %q", envelope.Status)
	}
	if downloadURL == "" {
		return nil, domain.Failf(domain.FailParse, "cobalt response carried no download url")
	}

	platform := domain.DetectPlatform(req.URL)
	dest := filepath.Join(p.downloadDir, domain.ArtifactName(platform, ext))
	if _, err := p.fetcher.Fetch(ctx, downloadURL, dest, nil); err != nil {
		return nil, err
	}

	return &domain.DownloadResult{
		Kind:     domain.ResultSingleFile,
		Paths:    []string{dest},
		Uploader: string(platform),
	}, nil
}

// classifyCobaltError maps provider-declared error codes onto the taxonomy.
func classifyCobaltError(code string) error {
	switch {
	case code == "":
		return domain.Failf(domain.FailParse, "cobalt error without code")
	case contains(code, "rate", "limit"):
		return domain.Failf(domain.FailRateLimited, "cobalt error: %s", code)
	case contains(code, "private", "unavailable", "not.found", "deleted"):
		return domain.Failf(domain.FailUnavailable, "cobalt error: %s", code)
	case contains(code, "too.big", "too.large"):
		return domain.Failf(domain.FailTooLarge, "cobalt error: %s", code)
	default:
		return domain.Failf(domain.FailUnknown, "cobalt error: %s", code)
	}
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
