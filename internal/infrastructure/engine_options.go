package infrastructure

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/yourusername/mediagrab/internal/domain"
)

// fetchOptions is the full option set for one extractor invocation. A fresh
// set is built for every attempt so per-attempt rotation never mutates
// shared state and audio builds never inherit video post-processing.
type fetchOptions struct {
	probeOnly bool

	outputBase   string // collision-free basename, no extension
	outputDir    string
	predictedExt string

	format       string
	mergeFormat  string
	recodeVideo  string
	extractAudio bool
	audioFormat  string
	audioQuality string

	headers       []string // "Key:Value", ordered
	extractorArgs []string
	maxFilesize   int64
	cookieFile    string
}

// buildFetchOptions computes the option set for one attempt. It is a pure
// function of its inputs apart from the generated output basename.
func (e *ExtractionEngine) buildFetchOptions(url string, kind domain.MediaKind, attempt int, engOpts domain.EngineOptions) fetchOptions {
	platform := domain.DetectPlatform(url)

	opts := fetchOptions{
		outputBase:  "yt_" + uuid.New().String()[:12],
		outputDir:   e.downloadDir,
		maxFilesize: e.maxFileSize,
		cookieFile:  e.cookieFile,
	}

	ua := userAgents[(attempt-1)%len(userAgents)]
	opts.headers = append(opts.headers,
		"User-Agent:"+ua,
		"Accept-Language:en-US,en;q=0.9",
	)

	switch platform {
	case domain.PlatformYouTube:
		opts.extractorArgs = append(opts.extractorArgs,
			youtubeClientRotations[(attempt-1)%len(youtubeClientRotations)])
	case domain.PlatformInstagram:
		opts.extractorArgs = append(opts.extractorArgs, "instagram:api_hostname=i.instagram.com")
		opts.headers = append(opts.headers,
			"Referer:https://www.instagram.com/",
			"Origin:https://www.instagram.com")
	case domain.PlatformFacebook:
		opts.headers = append(opts.headers,
			"Referer:https://www.facebook.com/",
			"Origin:https://www.facebook.com")
	}

	switch kind {
	case domain.KindAudio:
		// Audio builds carry no video selectors or post-processors at all.
		opts.format = "bestaudio/best"
		opts.extractAudio = true
		opts.audioFormat = e.cfg.AudioFormat
		opts.audioQuality = e.cfg.AudioBitrate
		opts.predictedExt = e.cfg.AudioFormat
	default:
		opts.predictedExt = "mp4"
		switch platform {
		case domain.PlatformYouTube:
			opts.format = youtubeFormatLadder(e.cfg.MaxHeight)
			opts.mergeFormat = "mp4"
		case domain.PlatformFacebook, domain.PlatformInstagram:
			opts.format = "best"
		default:
			opts.format = fmt.Sprintf("best[height<=%d]/best", e.cfg.MaxHeight)
		}
		if engOpts.ForceCompatibleCodec {
			// Some upstream streams (HEVC/AV1) render as a black screen in
			// the chat client; force a transcode to the H.264 container.
			opts.recodeVideo = "mp4"
		}
	}

	return opts
}

// youtubeFormatLadder is the priority list of format selectors, ending in
// plain "best available".
func youtubeFormatLadder(maxHeight int) string {
	return strings.Join([]string{
		fmt.Sprintf("bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]", maxHeight),
		fmt.Sprintf("bestvideo[height<=%d]+bestaudio", maxHeight),
		fmt.Sprintf("best[height<=%d][ext=mp4]", maxHeight),
		"best[ext=mp4]",
		"best",
	}, "/")
}

// outputTemplate is the extractor's output path pattern for this run.
func (o fetchOptions) outputTemplate() string {
	return filepath.Join(o.outputDir, o.outputBase+".%(ext)s")
}

// apply wires the option set onto a fresh extractor command.
func (o fetchOptions) apply(dl *ytdlp.Command) {
	dl.NoPlaylist()
	dl.SocketTimeout(30)
	dl.Retries("10")
	dl.FragmentRetries("10")

	for _, h := range o.headers {
		dl.AddHeaders(h)
	}
	for _, arg := range o.extractorArgs {
		dl.ExtractorArgs(arg)
	}
	if o.cookieFile != "" {
		dl.Cookies(o.cookieFile)
	}

	if o.probeOnly {
		dl.DumpSingleJSON()
		dl.SkipDownload()
		return
	}

	dl.DumpSingleJSON()
	dl.NoSimulate() // download and dump metadata in the same run
	dl.Output(o.outputTemplate())
	if o.maxFilesize > 0 {
		dl.MaxFileSize(fmt.Sprintf("%d", o.maxFilesize))
	}
	if o.format != "" {
		dl.Format(o.format)
	}
	if o.mergeFormat != "" {
		dl.MergeOutputFormat(o.mergeFormat)
	}
	if o.recodeVideo != "" {
		dl.RecodeVideo(o.recodeVideo)
	}
	if o.extractAudio {
		dl.ExtractAudio()
		dl.AudioFormat(o.audioFormat)
		if o.audioQuality != "" {
			dl.AudioQuality(o.audioQuality)
		}
	}
}
