package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

// Notifier mirrors noteworthy events into the admin log channel. A zero
// channel ID disables it.
type Notifier struct {
	api       *tgbotapi.BotAPI
	channelID int64
	logger    *zap.Logger
}

// NewNotifier creates a new admin log-channel notifier
func NewNotifier(api *tgbotapi.BotAPI, channelID int64, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		api:       api,
		channelID: channelID,
		logger:    logger,
	}
}

// Send posts a message to the log channel
func (n *Notifier) Send(text string) {
	if n.channelID == 0 || n.api == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.channelID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("failed to notify log channel", zap.Error(err))
	}
}

// NotifyNewUser announces a first-time user
func (n *Notifier) NotifyNewUser(userID int64, username string) {
	n.Send(fmt.Sprintf("New user: %d (@%s)", userID, username))
}

// NotifyDownload announces a completed download
func (n *Notifier) NotifyDownload(userID int64, platform domain.Platform, title string) {
	n.Send(fmt.Sprintf("Download by %d [%s]: %s", userID, platform, truncateString(title, 60)))
}

// NotifyFailure announces a download that exhausted every provider
func (n *Notifier) NotifyFailure(userID int64, url string, err error) {
	n.Send(fmt.Sprintf("Failure for %d: %s\n%v", userID, truncateString(url, 60), err))
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
