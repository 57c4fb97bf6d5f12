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

func newSnapSaveForTest(t *testing.T, endpoint string) *SnapSaveProvider {
	t.Helper()
	p := NewSnapSaveProvider(http.DefaultClient, NewDirectFetcher(nil, 1<<20, nil), t.TempDir(), nil)
	p.endpoint = endpoint
	return p
}

func TestSnapSavePrefersHDLink(t *testing.T) {
	var servedPath string
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		servedPath = r.URL.Path
		w.Write([]byte("fb video"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://www.facebook.com/watch/?v=1", r.PostForm.Get("url"))
		assert.Equal(t, "https://snapsave.app", r.Header.Get("Origin"))

		fmt.Fprintf(w, `<div>
			<a href="%s/sd.mp4">Download SD</a>
			<a href="%s/hd.mp4">Download HD</a>
		</div>`, media.URL, media.URL)
	}))
	defer api.Close()

	p := newSnapSaveForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.Equal(t, "/hd.mp4", servedPath)
	assert.Contains(t, result.Title, "HD")
	assert.FileExists(t, result.Path())
}

func TestSnapSaveFallsBackToSD(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sd video"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<a href="%s/sd.mp4">Download SD quality</a>`, media.URL)
	}))
	defer api.Close()

	p := newSnapSaveForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Title, "SD")
}

func TestSnapSaveNoLinksIsParseError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div>No results found</div>`))
	}))
	defer api.Close()

	p := newSnapSaveForTest(t, api.URL)
	_, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.facebook.com/watch/?v=1",
		Kind: domain.KindVideo,
	})
	assert.Equal(t, domain.FailParse, domain.KindOf(err))
}

func TestExtractDownloadLinkIgnoresNonDownloadAnchors(t *testing.T) {
	html := `<div>
		<a href="https://example.com/about">About us</a>
		<a href="/relative">Download here</a>
		<a href="https://cdn.example.com/clip.mp4">Download video</a>
	</div>`

	url, quality, err := extractDownloadLink(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/clip.mp4", url)
	assert.Equal(t, "SD", quality)
}
