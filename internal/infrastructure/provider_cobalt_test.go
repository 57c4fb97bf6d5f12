package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediagrab/internal/domain"
)

func newCobaltForTest(t *testing.T, endpoints ...string) *CobaltProvider {
	t.Helper()
	p := NewCobaltProvider(http.DefaultClient, NewDirectFetcher(nil, 1<<20, nil), t.TempDir(), nil)
	p.endpoints = endpoints
	return p
}

func TestCobaltTunnelResponse(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video bytes"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cobaltRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://www.tiktok.com/@u/video/1", req.URL)
		assert.Equal(t, "auto", req.DownloadMode)

		json.NewEncoder(w).Encode(map[string]string{"status": "tunnel", "url": media.URL})
	}))
	defer api.Close()

	p := newCobaltForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.tiktok.com/@u/video/1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSingleFile, result.Kind)
	assert.FileExists(t, result.Path())
}

func TestCobaltPickerResponse(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("picked"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"picker","picker":[{"type":"video","url":"%s"},{"type":"video","url":"%s/second"}]}`, media.URL, media.URL)
	}))
	defer api.Close()

	p := newCobaltForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.tiktok.com/@u/video/1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.FileExists(t, result.Path())
}

func TestCobaltErrorEnvelopeClassification(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected domain.FailureKind
	}{
		{"rate limit", "error.api.rate_exceeded", domain.FailRateLimited},
		{"content unavailable", "error.api.content.video.unavailable", domain.FailUnavailable},
		{"too big", "error.api.content.too.big", domain.FailTooLarge},
		{"anything else", "error.api.generic", domain.FailUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"status":"error","error":{"code":"%s"}}`, tt.code)
			}))
			defer api.Close()

			p := newCobaltForTest(t, api.URL)
			_, err := p.TryFetch(context.Background(), domain.DownloadRequest{
				URL:  "https://www.tiktok.com/@u/video/1",
				Kind: domain.KindVideo,
			})
			assert.Equal(t, tt.expected, domain.KindOf(err))
		})
	}
}

func TestCobaltFallsThroughEndpoints(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("from second endpoint"))
	}))
	defer media.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"redirect","url":"%s"}`, media.URL)
	}))
	defer working.Close()

	p := newCobaltForTest(t, broken.URL, working.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.tiktok.com/@u/video/1",
		Kind: domain.KindVideo,
	})
	require.NoError(t, err)
	assert.FileExists(t, result.Path())
}

func TestCobaltSurfacesFirstErrorWhenAllFail(t *testing.T) {
	limited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer limited.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	p := newCobaltForTest(t, limited.URL, broken.URL)
	_, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.tiktok.com/@u/video/1",
		Kind: domain.KindVideo,
	})
	assert.Equal(t, domain.FailRateLimited, domain.KindOf(err))
}

func TestCobaltRejectsPhotoRequests(t *testing.T) {
	p := newCobaltForTest(t, "http://unused.invalid")
	_, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.tiktok.com/@u/photo/1",
		Kind: domain.KindPhoto,
	})
	assert.Error(t, err)
}

func TestCobaltAudioMode(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio bytes"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cobaltRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "audio", req.DownloadMode)
		fmt.Fprintf(w, `{"status":"tunnel","url":"%s"}`, media.URL)
	}))
	defer api.Close()

	p := newCobaltForTest(t, api.URL)
	result, err := p.TryFetch(context.Background(), domain.DownloadRequest{
		URL:  "https://www.tiktok.com/@u/video/1",
		Kind: domain.KindAudio,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Path(), ".mp3")
}
