package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

const (
	// defaultUserAgent is presented on all outbound scraper/CDN requests.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	fetchChunkSize = 64 * 1024
)

// DirectFetcher streams an already-known media URL to local storage while
// enforcing the byte-size ceiling. It never buffers the whole file in memory
// and never leaves a partial file behind on failure.
type DirectFetcher struct {
	client  *http.Client
	maxSize int64
	logger  *zap.Logger
}

// NewDirectFetcher creates a new direct fetcher
func NewDirectFetcher(client *http.Client, maxSize int64, logger *zap.Logger) *DirectFetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectFetcher{client: client, maxSize: maxSize, logger: logger}
}

// Fetch downloads directURL into destPath. Extra headers, if any, are set on
// both the HEAD pre-check and the GET. Returns the number of bytes written.
func (f *DirectFetcher) Fetch(ctx context.Context, directURL, destPath string, headers map[string]string) (int64, error) {
	// HEAD pre-check: skip the transfer entirely when the server already
	// tells us the payload is over the ceiling. Servers that omit
	// Content-Length or reject HEAD are tolerated.
	if size, ok := f.headContentLength(ctx, directURL, headers); ok && size > f.maxSize {
		return 0, domain.Failf(domain.FailTooLarge,
			"file too large: %.1fMB (limit %.0fMB)", mb(size), mb(f.maxSize))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, directURL, nil)
	if err != nil {
		return 0, domain.FailWrap(domain.FailNetwork, err, "building request")
	}
	f.setHeaders(req, headers)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, f.transportError(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, domain.Failf(domain.FailRateLimited, "HTTP 429 while fetching media")
	case resp.StatusCode >= 400:
		return 0, domain.Failf(domain.FailNetwork, "HTTP %d while fetching media", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, domain.FailWrap(domain.FailUnknown, err, "creating download directory")
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, domain.FailWrap(domain.FailUnknown, err, "creating destination file")
	}

	written, err := f.copyBounded(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(destPath)
		if errors.Is(err, errTooLarge) {
			return 0, domain.Failf(domain.FailTooLarge,
				"file exceeded %.0fMB during download", mb(f.maxSize))
		}
		return 0, f.transportError(ctx, err)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return 0, domain.FailWrap(domain.FailUnknown, closeErr, "closing destination file")
	}

	f.logger.Info("direct fetch complete",
		zap.String("dest", filepath.Base(destPath)),
		zap.Float64("size_mb", mb(written)))
	return written, nil
}

var errTooLarge = errors.New("size ceiling exceeded")

// copyBounded copies in fixed-size chunks, aborting the moment the running
// total passes the ceiling so the cap is never exceeded even transiently.
func (f *DirectFetcher) copyBounded(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, fetchChunkSize)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > f.maxSize {
				return total, errTooLarge
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// headContentLength issues a HEAD request and reports the advertised size.
// ok is false when the server omits the header or the request fails.
func (f *DirectFetcher) headContentLength(ctx context.Context, url string, headers map[string]string) (int64, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false
	}
	f.setHeaders(req, headers)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, false
	}
	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || size <= 0 {
		return 0, false
	}
	return size, true
}

func (f *DirectFetcher) setHeaders(req *http.Request, headers map[string]string) {
	req.Header.Set("User-Agent", defaultUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func (f *DirectFetcher) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return domain.FailWrap(domain.FailTimeout, err, "download cancelled")
	}
	return domain.FailWrap(domain.FailNetwork, err, "transfer failed")
}

func mb(bytes int64) float64 {
	return float64(bytes) / 1024 / 1024
}
