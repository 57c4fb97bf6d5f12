package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediagrab/internal/domain"
)

func newSaveFromForTest(t *testing.T, endpoint string) *SaveFromProvider {
	t.Helper()
	p := NewSaveFromProvider(http.DefaultClient, NewDirectFetcher(nil, 1<<20, nil), t.TempDir(), nil)
	p.endpoint = endpoint
	return p
}

func TestSaveFromExtractsURLFromJSONP(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fb video"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.facebook.com/watch/?v=1", r.URL.Query().Get("url"))
		// JSONP callback wrapper around the info JSON
		fmt.Fprintf(w, `videodownloader({"url":[{"url":"%s","type":"mp4","quality":"hd"}]})`, media.URL)
	}))
	defer api.Close()

	p := newSaveFromForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.FileExists(t, result.Path())
}

func TestSaveFromUnescapesSlashes(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fb video"))
	}))
	defer media.Close()

	escaped := strings.ReplaceAll(media.URL, "/", `\/`)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `cb({"url":"%s"})`, escaped)
	}))
	defer api.Close()

	p := newSaveFromForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.FileExists(t, result.Path())
}

func TestSaveFromNoURLIsParseError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`cb({"error":"not found"})`))
	}))
	defer api.Close()

	p := newSaveFromForTest(t, api.URL)
	_, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	assert.Equal(t, domain.FailParse, domain.KindOf(err))
}

func TestSaveFromRateLimit(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer api.Close()

	p := newSaveFromForTest(t, api.URL)
	_, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	assert.Equal(t, domain.FailRateLimited, domain.KindOf(err))
}
