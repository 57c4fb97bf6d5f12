package infrastructure

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

var pinIDPattern = regexp.MustCompile(`/pin/(\d+)`)

// URLNormalizer rewrites known URL variants into the canonical forms the
// providers expect. Normalization is best-effort: any network failure during
// redirect resolution returns the input unchanged.
type URLNormalizer struct {
	client *http.Client
	logger *zap.Logger
}

// NewURLNormalizer creates a new URL normalizer
func NewURLNormalizer(client *http.Client, logger *zap.Logger) *URLNormalizer {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URLNormalizer{client: client, logger: logger}
}

// Normalize applies platform-specific rewrites. It never fails.
func (n *URLNormalizer) Normalize(ctx context.Context, rawURL string, platform domain.Platform) string {
	switch platform {
	case domain.PlatformYouTube:
		return normalizeYouTube(rawURL)
	case domain.PlatformPinterest:
		return n.normalizePinterest(ctx, rawURL)
	}
	return rawURL
}

// normalizeYouTube rewrites /shorts/{id} into the canonical watch?v= form,
// which the extractor handles more reliably. A `si` tracking parameter is
// preserved when present.
func normalizeYouTube(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if host != "youtube.com" && !strings.HasSuffix(host, ".youtube.com") {
		return rawURL
	}
	if !strings.HasPrefix(u.Path, "/shorts/") {
		return rawURL
	}

	videoID := strings.TrimPrefix(u.Path, "/shorts/")
	if i := strings.IndexByte(videoID, '/'); i >= 0 {
		videoID = videoID[:i]
	}
	if videoID == "" {
		return rawURL
	}

	canonical := "https://www.youtube.com/watch?v=" + videoID
	if si := u.Query().Get("si"); si != "" {
		canonical += "&si=" + url.QueryEscape(si)
	}
	return canonical
}

// normalizePinterest resolves pin.it short links by following redirects and
// canonicalizes to pinterest.com/pin/{id}/ when a numeric pin id is visible.
func (n *URLNormalizer) normalizePinterest(ctx context.Context, rawURL string) string {
	resolved := n.resolveRedirect(ctx, rawURL)
	if m := pinIDPattern.FindStringSubmatch(resolved); m != nil {
		return "https://www.pinterest.com/pin/" + m[1] + "/"
	}
	return resolved
}

// resolveRedirect follows redirects to the final destination URL. On any
// failure the original URL is returned unchanged.
func (n *URLNormalizer) resolveRedirect(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Debug("redirect resolution failed", zap.String("url", rawURL), zap.Error(err))
		return rawURL
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if final == "" {
		return rawURL
	}
	return final
}
