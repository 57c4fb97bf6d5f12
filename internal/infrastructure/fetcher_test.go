package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediagrab/internal/domain"
)

func TestFetchWritesFile(t *testing.T) {
	payload := strings.Repeat("x", 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	f := NewDirectFetcher(server.Client(), 1<<20, nil)

	written, err := f.Fetch(context.Background(), server.URL, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), written)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestFetchHeadPrecheckRejectsWithoutTransfer(t *testing.T) {
	var gotGet bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "99999999")
			return
		}
		gotGet = true
		w.Write([]byte("should never be requested"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	f := NewDirectFetcher(server.Client(), 1024, nil)

	_, err := f.Fetch(context.Background(), server.URL, dest, nil)
	assert.Equal(t, domain.FailTooLarge, domain.KindOf(err))
	assert.False(t, gotGet, "GET must not be issued after HEAD rejection")
	assert.NoFileExists(t, dest)
}

func TestFetchStreamingOverflowAbortsAndCleansUp(t *testing.T) {
	// No Content-Length on HEAD, so enforcement happens mid-stream.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		flusher := w.(http.Flusher)
		chunk := make([]byte, 64*1024)
		for i := 0; i < 10; i++ {
			w.Write(chunk)
			flusher.Flush()
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	f := NewDirectFetcher(server.Client(), 100*1024, nil)

	_, err := f.Fetch(context.Background(), server.URL, dest, nil)
	assert.Equal(t, domain.FailTooLarge, domain.KindOf(err))
	assert.NoFileExists(t, dest, "partial file must be removed")
}

func TestFetchClassifiesHTTPStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected domain.FailureKind
	}{
		{"rate limited", http.StatusTooManyRequests, domain.FailRateLimited},
		{"forbidden", http.StatusForbidden, domain.FailNetwork},
		{"server error", http.StatusInternalServerError, domain.FailNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "out.bin")
			f := NewDirectFetcher(server.Client(), 1<<20, nil)

			_, err := f.Fetch(context.Background(), server.URL, dest, nil)
			assert.Equal(t, tt.expected, domain.KindOf(err))
		})
	}
}

func TestFetchSendsExtraHeaders(t *testing.T) {
	var gotReferer, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gotReferer = r.Header.Get("Referer")
			gotUA = r.Header.Get("User-Agent")
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	f := NewDirectFetcher(server.Client(), 1<<20, nil)

	_, err := f.Fetch(context.Background(), server.URL, dest, map[string]string{
		"Referer": "https://example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", gotReferer)
	assert.Equal(t, defaultUserAgent, gotUA)
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "out.bin")
	f := NewDirectFetcher(server.Client(), 1<<20, nil)

	_, err := f.Fetch(ctx, server.URL, dest, nil)
	assert.Equal(t, domain.FailTimeout, domain.KindOf(err))
}
