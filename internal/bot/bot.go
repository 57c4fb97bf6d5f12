package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/app"
	"github.com/yourusername/mediagrab/internal/domain"
)

// Bot drives the Telegram update loop and dispatches messages to handlers.
type Bot struct {
	api          *tgbotapi.BotAPI
	orchestrator *app.Orchestrator
	users        domain.UserRepository
	notifier     *Notifier
	limiter      *rateLimiter
	cfg          domain.BotConfig
	logger       *zap.Logger

	// newDownloadContext builds the per-download context, typically with
	// the configured wall-clock timeout.
	newDownloadContext func() (context.Context, context.CancelFunc)

	running atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	// pending maps keyboard messages to the link they were offered for.
	// Callback data carries only the key; URLs do not fit in 64 bytes.
	pendingMu sync.Mutex
	pending   map[string]string
}

// Options bundles the bot's collaborators.
type Options struct {
	API          *tgbotapi.BotAPI
	Orchestrator *app.Orchestrator
	Users        domain.UserRepository
	Notifier     *Notifier
	Config       domain.BotConfig
	// NewDownloadContext builds the per-download context. The bot calls the
	// returned cancel when the download finishes.
	NewDownloadContext func() (context.Context, context.CancelFunc)
	Logger             *zap.Logger
}

// New creates a new bot
func New(opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		api:          opts.API,
		orchestrator: opts.Orchestrator,
		users:        opts.Users,
		notifier:     opts.Notifier,
		limiter:      newRateLimiter(opts.Config.MessageEvery),
		cfg:          opts.Config,
		logger:       logger,
		pending:      make(map[string]string),
	}
	b.newDownloadContext = opts.NewDownloadContext
	if b.newDownloadContext == nil {
		b.newDownloadContext = func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 5*time.Minute)
		}
	}
	return b
}

// Start begins long polling. It blocks until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)

	b.running.Store(true)
	defer b.running.Store(false)

	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// Stop cancels the update loop
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// IsRunning reports whether the update loop is active
func (b *Bot) IsRunning() bool {
	return b.running.Load()
}

// dispatch routes one update. Downloads run on their own goroutine so a slow
// extraction never stalls the update loop.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleCallback(ctx, cb)
		}()
	case update.Message != nil:
		msg := update.Message
		if !b.limiter.Allow(msg.From.ID) && !b.isAdmin(msg.From.ID) {
			b.logger.Debug("rate limited", zap.Int64("user", msg.From.ID))
			return
		}
		if msg.IsCommand() {
			b.handleCommand(msg)
			return
		}
		if len(msg.Photo) > 0 {
			b.handleReceipt(msg)
			return
		}
		b.handleText(msg)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.AdminID != 0 && userID == b.cfg.AdminID
}

// send is a fire-and-forget reply helper
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("send failed", zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	b.send(msg)
}
