package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

const saveFromEndpoint = "https://api.savefrom.net/info.php"

// saveFromURLPattern pulls the first "url":"..." value out of the JSONP
// payload. The service wraps JSON in a callback, so a full decode is not
// worth the trouble.
var saveFromURLPattern = regexp.MustCompile(`"url"\s*:\s*"(https?:[^"]+)"`)

// SaveFromProvider is the second Facebook scraper fallback.
type SaveFromProvider struct {
	client      *http.Client
	fetcher     *DirectFetcher
	downloadDir string
	endpoint    string
	logger      *zap.Logger
}

// NewSaveFromProvider creates a new SaveFrom adapter
func NewSaveFromProvider(client *http.Client, fetcher *DirectFetcher, downloadDir string, logger *zap.Logger) *SaveFromProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaveFromProvider{
		client:      client,
		fetcher:     fetcher,
		downloadDir: downloadDir,
		endpoint:    saveFromEndpoint,
		logger:      logger,
	}
}

// Name identifies the provider
func (p *SaveFromProvider) Name() string { return "savefrom" }

// TryFetch asks the SaveFrom info endpoint for a direct media URL and
// downloads it.
func (p *SaveFromProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if req.Kind != domain.KindVideo {
		return nil, domain.Failf(domain.FailUnknown, "savefrom supports video only")
	}

	infoURL := p.endpoint + "?url=" + url.QueryEscape(req.URL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "building savefrom request")
	}
	httpReq.Header.Set("User-Agent", defaultUserAgent)
	httpReq.Header.Set("Referer", "https://savefrom.net/")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "savefrom cancelled")
		}
		return nil, domain.FailWrap(domain.FailNetwork, err, "savefrom request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.Failf(domain.FailRateLimited, "savefrom rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.Failf(domain.FailNetwork, "savefrom returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "reading savefrom response")
	}

	match := saveFromURLPattern.FindSubmatch(body)
	if match == nil {
		return nil, domain.Failf(domain.FailParse, "no media url in savefrom response")
	}
	downloadURL := strings.ReplaceAll(string(match[1]), `\/`, "/")

	dest := filepath.Join(p.downloadDir, domain.ArtifactName(domain.PlatformFacebook, "mp4"))
	if _, err := p.fetcher.Fetch(ctx, downloadURL, dest, nil); err != nil {
		return nil, err
	}

	return &domain.DownloadResult{
		Kind:     domain.ResultSingleFile,
		Paths:    []string{dest},
		Title:    "Facebook video",
		Uploader: "Facebook",
	}, nil
}
