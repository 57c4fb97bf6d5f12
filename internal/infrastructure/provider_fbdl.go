package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

const fbDownloaderEndpoint = "https://v3.fdownloader.net/api/ajaxSearch?lang=en"

// fbDownloaderResponse wraps an HTML fragment. status "ok" means the data
// field holds the download page markup.
type fbDownloaderResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"`
}

// FbDownloaderProvider is the last Facebook scraper fallback before the
// extraction engine.
type FbDownloaderProvider struct {
	client      *http.Client
	fetcher     *DirectFetcher
	downloadDir string
	endpoint    string
	logger      *zap.Logger
}

// NewFbDownloaderProvider creates a new FbDownloader adapter
func NewFbDownloaderProvider(client *http.Client, fetcher *DirectFetcher, downloadDir string, logger *zap.Logger) *FbDownloaderProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FbDownloaderProvider{
		client:      client,
		fetcher:     fetcher,
		downloadDir: downloadDir,
		endpoint:    fbDownloaderEndpoint,
		logger:      logger,
	}
}

// Name identifies the provider
func (p *FbDownloaderProvider) Name() string { return "fbdownloader" }

// TryFetch posts the URL to the ajaxSearch endpoint and scrapes the download
// link out of the HTML fragment embedded in the JSON response.
func (p *FbDownloaderProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if req.Kind != domain.KindVideo {
		return nil, domain.Failf(domain.FailUnknown, "fbdownloader supports video only")
	}

	form := url.Values{
		"k_exp":   {""},
		"k_token": {""},
		"q":       {req.URL},
		"lang":    {"en"},
		"web":     {"fdownloader.net"},
		"v":       {"v2"},
		"w":       {""},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "building fbdownloader request")
	}
	httpReq.Header.Set("User-Agent", defaultUserAgent)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Origin", "https://fdownloader.net")
	httpReq.Header.Set("Referer", "https://fdownloader.net/")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "fbdownloader cancelled")
		}
		return nil, domain.FailWrap(domain.FailNetwork, err, "fbdownloader request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Failf(domain.FailNetwork, "fbdownloader returned HTTP %d", resp.StatusCode)
	}

	var envelope fbDownloaderResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.FailWrap(domain.FailParse, err, "decoding fbdownloader response")
	}
	if envelope.Status != "ok" || envelope.Data == "" {
		return nil, domain.Failf(domain.FailParse, "fbdownloader status %q", envelope.Status)
	}

	downloadURL, quality, err := extractDownloadLink(strings.NewReader(envelope.Data))
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(p.downloadDir, domain.ArtifactName(domain.PlatformFacebook, "mp4"))
	if _, err := p.fetcher.Fetch(ctx, downloadURL, dest, nil); err != nil {
		return nil, err
	}

	return &domain.DownloadResult{
		Kind:     domain.ResultSingleFile,
		Paths:    []string{dest},
		Title:    "Facebook video (" + quality + ")",
		Uploader: "Facebook",
	}, nil
}
