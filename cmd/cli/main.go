package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/app"
	"github.com/yourusername/mediagrab/internal/domain"
	"github.com/yourusername/mediagrab/internal/infrastructure"
	"github.com/yourusername/mediagrab/pkg/logger"
)

var (
	configPath string
	outputDir  string
	audioOnly  bool
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "mediagrab",
		Short: "Mediagrab CLI - Download media from social platforms",
		Long:  `A command-line interface for downloading videos, audio and photo posts from YouTube, TikTok, Instagram, Facebook, Twitter/X and Pinterest.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	getCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides config)")
	getCmd.Flags().BoolVarP(&audioOnly, "audio", "a", false, "Extract audio instead of video")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(detectCmd)
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download media from a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if outputDir != "" {
			config.Download.Dir = outputDir
		}
		if verbose {
			config.Logging.Level = "debug"
		}

		log, err := logger.New(logger.Config{
			Level:      config.Logging.Level,
			Format:     "console",
			OutputPath: "stderr",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()

		if err := os.MkdirAll(config.Download.Dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ytdlp.MustInstall(context.Background(), nil)

		orchestrator := buildOrchestrator(config, log)

		kind := domain.KindVideo
		if audioOnly {
			kind = domain.KindAudio
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.Download.Timeout)
		defer cancel()

		result, err := orchestrator.Download(ctx, domain.DownloadRequest{
			URL:  args[0],
			Kind: kind,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Download failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Download complete!")
		if result.Title != "" {
			fmt.Printf("Title: %s\n", result.Title)
		}
		for _, path := range result.Paths {
			fmt.Printf("File: %s\n", path)
		}
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect [url]",
	Short: "Show which platform a URL routes to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(domain.DetectPlatform(args[0]))
	},
}

// buildOrchestrator wires the full provider chain for one-shot use.
func buildOrchestrator(config *domain.Config, log *zap.Logger) *app.Orchestrator {
	httpClient := &http.Client{Timeout: 90 * time.Second}
	fetcher := infrastructure.NewDirectFetcher(httpClient, config.Download.MaxFileSize, log)
	normalizer := infrastructure.NewURLNormalizer(httpClient, log)

	pool := infrastructure.NewWorkerPool(config.Download.WorkerPoolSize)
	engine := infrastructure.NewExtractionEngine(
		&config.Engine,
		config.Download.Dir,
		config.Download.MaxFileSize,
		pool,
		fetcher,
		log,
	)

	providers := app.Providers{
		Cobalt:       infrastructure.NewCobaltProvider(httpClient, fetcher, config.Download.Dir, log),
		TikWM:        infrastructure.NewTikWMProvider(httpClient, fetcher, config.Download.Dir, log),
		SnapSave:     infrastructure.NewSnapSaveProvider(httpClient, fetcher, config.Download.Dir, log),
		SaveFrom:     infrastructure.NewSaveFromProvider(httpClient, fetcher, config.Download.Dir, log),
		FbDownloader: infrastructure.NewFbDownloaderProvider(httpClient, fetcher, config.Download.Dir, log),
		Pinterest:    infrastructure.NewPinterestProvider(httpClient, fetcher, engine, config.Download.Dir, log),
	}

	return app.NewOrchestrator(engine, normalizer, providers, config.Download.MaxFileSize, log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
