package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected Platform
	}{
		{
			name:     "youtube watch",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: PlatformYouTube,
		},
		{
			name:     "youtube short link",
			url:      "https://youtu.be/dQw4w9WgXcQ",
			expected: PlatformYouTube,
		},
		{
			name:     "youtube shorts",
			url:      "https://www.youtube.com/shorts/abc123",
			expected: PlatformYouTube,
		},
		{
			name:     "youtube mobile",
			url:      "https://m.youtube.com/watch?v=abc",
			expected: PlatformYouTube,
		},
		{
			name:     "tiktok canonical",
			url:      "https://www.tiktok.com/@user/video/123456",
			expected: PlatformTikTok,
		},
		{
			name:     "tiktok vm share link",
			url:      "https://vm.tiktok.com/ZMabcdef/",
			expected: PlatformTikTok,
		},
		{
			name:     "tiktok vt share link",
			url:      "https://vt.tiktok.com/ZSabcdef/",
			expected: PlatformTikTok,
		},
		{
			name:     "facebook watch",
			url:      "https://www.facebook.com/watch/?v=123",
			expected: PlatformFacebook,
		},
		{
			name:     "fb.watch short link",
			url:      "https://fb.watch/abc123/",
			expected: PlatformFacebook,
		},
		{
			name:     "instagram reel",
			url:      "https://www.instagram.com/reel/Cabc123/",
			expected: PlatformInstagram,
		},
		{
			name:     "twitter status",
			url:      "https://twitter.com/user/status/123",
			expected: PlatformTwitter,
		},
		{
			name:     "x.com status",
			url:      "https://x.com/user/status/123",
			expected: PlatformTwitter,
		},
		{
			name:     "pinterest pin",
			url:      "https://www.pinterest.com/pin/123456/",
			expected: PlatformPinterest,
		},
		{
			name:     "pin.it share link",
			url:      "https://pin.it/abc123",
			expected: PlatformPinterest,
		},
		{
			name:     "mixed case host",
			url:      "https://WWW.YouTube.COM/watch?v=abc",
			expected: PlatformYouTube,
		},
		{
			name:     "unknown host",
			url:      "https://example.com/video",
			expected: PlatformOther,
		},
		{
			name:     "lookalike host does not match",
			url:      "https://notyoutube.com/watch?v=abc",
			expected: PlatformOther,
		},
		{
			name:     "empty string",
			url:      "",
			expected: PlatformOther,
		},
		{
			name:     "not a url",
			url:      "just some text",
			expected: PlatformOther,
		},
		{
			name:     "whitespace around url",
			url:      "  https://www.tiktok.com/@user/video/1  ",
			expected: PlatformTikTok,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestValidateKind(t *testing.T) {
	assert.True(t, ValidateKind(KindVideo))
	assert.True(t, ValidateKind(KindAudio))
	assert.True(t, ValidateKind(KindPhoto))
	assert.False(t, ValidateKind(MediaKind("gif")))
	assert.False(t, ValidateKind(MediaKind("")))
}

func TestArtifactName(t *testing.T) {
	a := ArtifactName(PlatformTikTok, "mp4")
	b := ArtifactName(PlatformTikTok, "mp4")

	assert.NotEqual(t, a, b, "two artifact names must never collide")
	assert.True(t, strings.HasPrefix(a, "tiktok_"))
	assert.True(t, strings.HasSuffix(a, ".mp4"))

	// A leading dot on the extension is tolerated
	c := ArtifactName(PlatformYouTube, ".m4a")
	assert.True(t, strings.HasSuffix(c, ".m4a"))
	assert.False(t, strings.HasSuffix(c, "..m4a"))
}

func TestDownloadResultPath(t *testing.T) {
	empty := &DownloadResult{}
	assert.Equal(t, "", empty.Path())

	single := &DownloadResult{Kind: ResultSingleFile, Paths: []string{"/tmp/a.mp4"}}
	assert.Equal(t, "/tmp/a.mp4", single.Path())

	slideshow := &DownloadResult{Kind: ResultSlideshow, Paths: []string{"/tmp/1.jpg", "/tmp/2.jpg"}}
	assert.Equal(t, "/tmp/1.jpg", slideshow.Path())
}
