package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind represents the kind of media requested by the user
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindPhoto MediaKind = "photo" // multi-image slideshow posts
)

// Platform represents the source platform for downloads
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformPinterest Platform = "pinterest"
	PlatformOther     Platform = "other"
)

// ResultKind distinguishes a single downloaded file from a slideshow of images
type ResultKind string

const (
	ResultSingleFile ResultKind = "single_file"
	ResultSlideshow  ResultKind = "slideshow"
)

// DownloadRequest is the immutable input to the orchestrator. The URL must
// already be validated (scheme, allowlist) by the caller.
type DownloadRequest struct {
	URL  string
	Kind MediaKind
}

// DownloadResult is the success arm of a download. Exactly one path for
// ResultSingleFile, one or more for ResultSlideshow. Every path exists on
// disk at the moment it is returned; the caller takes ownership and is
// responsible for deleting the files after use.
type DownloadResult struct {
	Kind     ResultKind
	Paths    []string
	Title    string
	Duration int // seconds
	Uploader string
}

// Path returns the primary file path.
func (r *DownloadResult) Path() string {
	if len(r.Paths) == 0 {
		return ""
	}
	return r.Paths[0]
}

// platformDomains maps each platform to its known domain suffixes.
var platformDomains = map[Platform][]string{
	PlatformYouTube:   {"youtube.com", "youtu.be"},
	PlatformTikTok:    {"tiktok.com"},
	PlatformFacebook:  {"facebook.com", "fb.watch", "fb.com"},
	PlatformInstagram: {"instagram.com", "instagr.am"},
	PlatformTwitter:   {"twitter.com", "x.com", "t.co"},
	PlatformPinterest: {"pinterest.com", "pin.it"},
}

// DetectPlatform classifies a URL into a platform by host suffix matching.
// Matching is case-insensitive and covers subdomain variants (www., m., vm.,
// vt., ...). It never fails: anything unrecognized is PlatformOther.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return PlatformOther
	}
	host := strings.ToLower(u.Hostname())

	for platform, domains := range platformDomains {
		for _, domain := range domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return platform
			}
		}
	}
	return PlatformOther
}

// ValidateKind checks if a media kind is valid.
func ValidateKind(kind MediaKind) bool {
	return kind == KindVideo || kind == KindAudio || kind == KindPhoto
}

// ArtifactName builds a collision-free file name for one request so that
// concurrent downloads into the shared download directory never overwrite
// each other.
func ArtifactName(platform Platform, ext string) string {
	return fmt.Sprintf("%s_%s_%d.%s", platform, uuid.New().String()[:8], time.Now().Unix(), strings.TrimPrefix(ext, "."))
}
