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

const tikwmAPIBase = "https://www.tikwm.com/api/"

// tikwmResponse is the TikWM API envelope. code 0 means success.
type tikwmResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Play     string  `json:"play"`
		HDPlay   string  `json:"hdplay"`
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
		Author   struct {
			Nickname string `json:"nickname"`
		} `json:"author"`
	} `json:"data"`
}

// TikWMProvider is the plain-JSON TikTok fallback. It only supports video.
type TikWMProvider struct {
	client      *http.Client
	fetcher     *DirectFetcher
	downloadDir string
	apiBase     string
	logger      *zap.Logger
}

// NewTikWMProvider creates a new TikWM adapter
func NewTikWMProvider(client *http.Client, fetcher *DirectFetcher, downloadDir string, logger *zap.Logger) *TikWMProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TikWMProvider{
		client:      client,
		fetcher:     fetcher,
		downloadDir: downloadDir,
		apiBase:     tikwmAPIBase,
		logger:      logger,
	}
}

// Name identifies the provider
func (p *TikWMProvider) Name() string { return "tikwm" }

// TryFetch resolves a TikTok video URL through the TikWM API, preferring the
// HD variant.
func (p *TikWMProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if req.Kind != domain.KindVideo {
		return nil, domain.Failf(domain.FailUnknown, "tikwm supports video only")
	}

	apiURL := p.apiBase + "?url=" + url.QueryEscape(req.URL) + "&hd=1"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "building tikwm request")
	}
	httpReq.Header.Set("User-Agent", defaultUserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "tikwm cancelled")
		}
		return nil, domain.FailWrap(domain.FailNetwork, err, "tikwm request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Failf(domain.FailNetwork, "tikwm returned HTTP %d", resp.StatusCode)
	}

	var envelope tikwmResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.FailWrap(domain.FailParse, err, "decoding tikwm response")
	}
	if envelope.Code != 0 {
		if strings.Contains(strings.ToLower(envelope.Msg), "limit") {
			return nil, domain.Failf(domain.FailRateLimited, "tikwm: %s", envelope.Msg)
		}
		return nil, domain.Failf(domain.FailParse, "tikwm error code %d: %s", envelope.Code, envelope.Msg)
	}

	downloadURL := envelope.Data.HDPlay
	if downloadURL == "" {
		downloadURL = envelope.Data.Play
	}
	if downloadURL == "" {
		return nil, domain.Failf(domain.FailParse, "tikwm response carried no video url")
	}

	dest := filepath.Join(p.downloadDir, domain.ArtifactName(domain.PlatformTikTok, "mp4"))
	if _, err := p.fetcher.Fetch(ctx, downloadURL, dest, nil); err != nil {
		return nil, err
	}

	result := &domain.DownloadResult{
		Kind:     domain.ResultSingleFile,
		Paths:    []string{dest},
		Title:    envelope.Data.Title,
		Duration: int(envelope.Data.Duration),
		Uploader: envelope.Data.Author.Nickname,
	}
	return result, nil
}
