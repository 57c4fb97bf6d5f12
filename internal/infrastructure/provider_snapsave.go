package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

const snapSaveEndpoint = "https://www.snapsave.app/action.php?lang=en"

// SnapSaveProvider scrapes the SnapSave helper service for Facebook videos.
// The origin/referer headers are part of the provider's contract.
type SnapSaveProvider struct {
	client      *http.Client
	fetcher     *DirectFetcher
	downloadDir string
	endpoint    string
	logger      *zap.Logger
}

// NewSnapSaveProvider creates a new SnapSave adapter
func NewSnapSaveProvider(client *http.Client, fetcher *DirectFetcher, downloadDir string, logger *zap.Logger) *SnapSaveProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapSaveProvider{
		client:      client,
		fetcher:     fetcher,
		downloadDir: downloadDir,
		endpoint:    snapSaveEndpoint,
		logger:      logger,
	}
}

// Name identifies the provider
func (p *SnapSaveProvider) Name() string { return "snapsave" }

// TryFetch posts the URL to SnapSave and scrapes a download link out of the
// returned HTML, preferring HD over SD.
func (p *SnapSaveProvider) TryFetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if req.Kind != domain.KindVideo {
		return nil, domain.Failf(domain.FailUnknown, "snapsave supports video only")
	}

	form := url.Values{"url": {req.URL}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.FailWrap(domain.FailNetwork, err, "building snapsave request")
	}
	httpReq.Header.Set("User-Agent", defaultUserAgent)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Origin", "https://snapsave.app")
	httpReq.Header.Set("Referer", "https://snapsave.app/")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.FailWrap(domain.FailTimeout, ctx.Err(), "snapsave cancelled")
		}
		return nil, domain.FailWrap(domain.FailNetwork, err, "snapsave request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Failf(domain.FailNetwork, "snapsave returned HTTP %d", resp.StatusCode)
	}

	downloadURL, quality, err := extractDownloadLink(resp.Body)
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

// extractDownloadLink pulls the best download anchor out of a helper
// service's HTML fragment. Shared by the SnapSave and FbDownloader adapters,
// which both emit "Download ... HD/SD" anchors.
func extractDownloadLink(body io.Reader) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", "", domain.FailWrap(domain.FailParse, err, "parsing provider HTML")
	}

	var hdURL, sdURL string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !strings.HasPrefix(href, "http") {
			return
		}
		text := strings.ToLower(sel.Text())
		if !strings.Contains(text, "download") {
			return
		}
		if strings.Contains(text, "hd") && hdURL == "" {
			hdURL = href
		} else if sdURL == "" {
			sdURL = href
		}
	})

	switch {
	case hdURL != "":
		return hdURL, "HD", nil
	case sdURL != "":
		return sdURL, "SD", nil
	default:
		return "", "", domain.Failf(domain.FailParse, "no download link in provider response")
	}
}
