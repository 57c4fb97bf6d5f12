package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/api"
	"github.com/yourusername/mediagrab/internal/app"
	"github.com/yourusername/mediagrab/internal/bot"
	"github.com/yourusername/mediagrab/internal/infrastructure"
	"github.com/yourusername/mediagrab/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// Load configuration
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if config.Bot.Token == "" {
		fmt.Fprintln(os.Stderr, "Bot token not configured (set MEDIAGRAB_BOT_TOKEN)")
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting mediagrab bot",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port))

	// Create working directories
	for _, dir := range []string{config.Download.Dir, "data"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	// Make sure the extractor binary is present before accepting work
	ytdlp.MustInstall(context.Background(), nil)

	// Initialize repository
	repo, err := infrastructure.NewSQLiteUserRepository(config.Store.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Shared HTTP client for scraper adapters and direct transfers
	httpClient := &http.Client{Timeout: 90 * time.Second}
	fetcher := infrastructure.NewDirectFetcher(httpClient, config.Download.MaxFileSize, log)
	normalizer := infrastructure.NewURLNormalizer(httpClient, log)

	// Extraction engine on a bounded worker pool
	pool := infrastructure.NewWorkerPool(config.Download.WorkerPoolSize)
	defer pool.Shutdown()
	engine := infrastructure.NewExtractionEngine(
		&config.Engine,
		config.Download.Dir,
		config.Download.MaxFileSize,
		pool,
		fetcher,
		log,
	)

	// Provider chain members
	providers := app.Providers{
		Cobalt:       infrastructure.NewCobaltProvider(httpClient, fetcher, config.Download.Dir, log),
		TikWM:        infrastructure.NewTikWMProvider(httpClient, fetcher, config.Download.Dir, log),
		SnapSave:     infrastructure.NewSnapSaveProvider(httpClient, fetcher, config.Download.Dir, log),
		SaveFrom:     infrastructure.NewSaveFromProvider(httpClient, fetcher, config.Download.Dir, log),
		FbDownloader: infrastructure.NewFbDownloaderProvider(httpClient, fetcher, config.Download.Dir, log),
		Pinterest:    infrastructure.NewPinterestProvider(httpClient, fetcher, engine, config.Download.Dir, log),
	}

	orchestrator := app.NewOrchestrator(engine, normalizer, providers, config.Download.MaxFileSize, log)

	// Telegram bot
	botAPI, err := tgbotapi.NewBotAPI(config.Bot.Token)
	if err != nil {
		log.Fatal("Failed to connect to Telegram", zap.Error(err))
	}
	notifier := bot.NewNotifier(botAPI, config.Bot.LogChannelID, log)

	downloadTimeout := config.Download.Timeout
	b := bot.New(bot.Options{
		API:          botAPI,
		Orchestrator: orchestrator,
		Users:        repo,
		Notifier:     notifier,
		Config:       config.Bot,
		NewDownloadContext: func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), downloadTimeout)
		},
		Logger: log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	botErr := make(chan error, 1)
	go func() {
		botErr <- b.Start(ctx)
	}()

	// HTTP health and stats server
	router := api.SetupRouter(b, repo, log)
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal or bot exit
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-botErr:
		if err != nil && err != context.Canceled {
			log.Error("Bot stopped unexpectedly", zap.Error(err))
		}
	}

	log.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	b.Stop()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Bot exited")
}
