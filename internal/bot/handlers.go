package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab/internal/domain"
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

const helpText = `Send me a link from YouTube, TikTok, Instagram, Facebook, Twitter/X or Pinterest and pick a format.

Commands:
/start - welcome and quota status
/plan - your account details
/help - this message`

// handleCommand routes slash commands
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.cmdStart(msg)
	case "plan":
		b.cmdPlan(msg)
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "approve":
		b.cmdApprove(msg)
	case "stats":
		b.cmdStats(msg)
	case "broadcast":
		b.cmdBroadcast(msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command, try /help")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	user, created, err := b.users.GetOrCreate(msg.From.ID)
	if err != nil {
		b.logger.Error("user lookup failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	if created {
		b.notifier.NotifyNewUser(msg.From.ID, msg.From.UserName)
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Hi %s! Send me a media link and I'll download it for you.\n\nYou have %d free downloads left today.\n\n%s",
		msg.From.FirstName, user.QuotaLeft(b.cfg.FreeDailyQuota), helpText))
}

func (b *Bot) cmdPlan(msg *tgbotapi.Message) {
	user, _, err := b.users.GetOrCreate(msg.From.ID)
	if err != nil {
		b.logger.Error("user lookup failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}

	plan := "Free"
	quota := fmt.Sprintf("%d downloads left today", user.QuotaLeft(b.cfg.FreeDailyQuota))
	if user.IsPremium() {
		plan = "Premium"
		quota = "unlimited downloads"
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Plan: %s\nQuota: %s\nTotal downloads: %d",
		plan, quota, user.TotalDownloads))
}

func (b *Bot) cmdApprove(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /approve <user_id>")
		return
	}
	if err := b.users.SetPremium(id, true); err != nil {
		b.logger.Error("approve failed", zap.Int64("user", id), zap.Error(err))
		b.reply(msg.Chat.ID, "Failed to approve user.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d is now premium.", id))
	b.reply(id, "Your premium plan is active. Enjoy unlimited downloads!")
}

func (b *Bot) cmdStats(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	stats, err := b.users.GetStats()
	if err != nil {
		b.logger.Error("stats failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Failed to load stats.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Users: %d\nPremium: %d\nFree: %d\nTotal downloads: %d",
		stats.Total, stats.Premium, stats.Free, stats.TotalDownloads))
}

func (b *Bot) cmdBroadcast(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Usage: /broadcast <message>")
		return
	}
	ids, err := b.users.ListIDs()
	if err != nil {
		b.logger.Error("broadcast listing failed", zap.Error(err))
		return
	}
	sent := 0
	for _, id := range ids {
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err == nil {
			sent++
		}
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Broadcast delivered to %d of %d users.", sent, len(ids)))
}

// handleReceipt relays photo messages to the log channel as payment
// receipts, with an approve hint for the admin.
func (b *Bot) handleReceipt(msg *tgbotapi.Message) {
	if b.cfg.LogChannelID == 0 {
		b.reply(msg.Chat.ID, "Receipts are not being accepted right now.")
		return
	}
	forward := tgbotapi.NewForward(b.cfg.LogChannelID, msg.Chat.ID, msg.MessageID)
	b.send(forward)
	b.notifier.Send(fmt.Sprintf("Receipt from %d (@%s). Approve with /approve %d",
		msg.From.ID, msg.From.UserName, msg.From.ID))
	b.reply(msg.Chat.ID, "Thanks! Your receipt was forwarded for review.")
}

// handleText offers a format keyboard for any message carrying a link.
func (b *Bot) handleText(msg *tgbotapi.Message) {
	link := linkPattern.FindString(msg.Text)
	if link == "" {
		b.reply(msg.Chat.ID, "Send me a media link, or /help for usage.")
		return
	}

	user, _, err := b.users.GetOrCreate(msg.From.ID)
	if err != nil {
		b.logger.Error("user lookup failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	if user.QuotaLeft(b.cfg.FreeDailyQuota) == 0 {
		b.reply(msg.Chat.ID, "Daily quota reached. Upgrade with /plan or come back tomorrow.")
		return
	}

	key := fmt.Sprintf("%d:%d", msg.Chat.ID, msg.MessageID)
	b.pendingMu.Lock()
	b.pending[key] = link
	b.pendingMu.Unlock()

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎬 Video", "video|"+key),
			tgbotapi.NewInlineKeyboardButtonData("🎵 Audio", "audio|"+key),
		),
	)
	prompt := tgbotapi.NewMessage(msg.Chat.ID, "What should I download?")
	prompt.ReplyToMessageID = msg.MessageID
	prompt.ReplyMarkup = keyboard
	b.send(prompt)
}

// handleCallback runs the actual download for a keyboard choice.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if ctx.Err() != nil {
		return
	}

	// Callbacks on inaccessible or expired messages carry no Message.
	if cb.Message == nil {
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("callback ack failed", zap.Error(err))
	}

	parts := strings.SplitN(cb.Data, "|", 2)
	if len(parts) != 2 {
		return
	}
	kind := domain.MediaKind(parts[0])

	b.pendingMu.Lock()
	link, ok := b.pending[parts[1]]
	delete(b.pending, parts[1])
	b.pendingMu.Unlock()

	chatID := cb.Message.Chat.ID
	if !ok {
		b.reply(chatID, "That link expired, send it again.")
		return
	}

	user, _, err := b.users.GetOrCreate(cb.From.ID)
	if err != nil {
		b.logger.Error("user lookup failed", zap.Error(err))
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}
	if user.QuotaLeft(b.cfg.FreeDailyQuota) == 0 {
		b.reply(chatID, "Daily quota reached. Upgrade with /plan or come back tomorrow.")
		return
	}

	status := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, "Downloading, hang tight...")
	b.send(status)

	ctx, cancel := b.newDownloadContext()
	defer cancel()

	result, err := b.orchestrator.Download(ctx, domain.DownloadRequest{URL: link, Kind: kind})
	if err != nil {
		b.logger.Warn("download failed",
			zap.Int64("user", cb.From.ID),
			zap.String("url", link),
			zap.Error(err))
		b.notifier.NotifyFailure(cb.From.ID, link, err)
		b.reply(chatID, userFacingError(err))
		return
	}
	defer cleanupFiles(result.Paths, b.logger)

	if err := b.upload(chatID, kind, result); err != nil {
		b.logger.Error("upload failed", zap.Error(err))
		b.reply(chatID, "Downloaded but could not send the file, sorry.")
		return
	}

	user.RecordDownload(time.Now().UTC())
	if err := b.users.Update(user); err != nil {
		b.logger.Error("quota update failed", zap.Error(err))
	}
	b.notifier.NotifyDownload(cb.From.ID, domain.DetectPlatform(link), result.Title)

	done := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, "Done!")
	b.send(done)
}

// upload sends the result files to the chat, batching slideshows into media
// groups of at most ten photos.
func (b *Bot) upload(chatID int64, kind domain.MediaKind, result *domain.DownloadResult) error {
	if result.Kind == domain.ResultSlideshow {
		const groupMax = 10
		for start := 0; start < len(result.Paths); start += groupMax {
			end := start + groupMax
			if end > len(result.Paths) {
				end = len(result.Paths)
			}
			media := make([]interface{}, 0, end-start)
			for _, path := range result.Paths[start:end] {
				media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path)))
			}
			group := tgbotapi.NewMediaGroup(chatID, media)
			if _, err := b.api.SendMediaGroup(group); err != nil {
				return err
			}
		}
		return nil
	}

	path := result.Path()
	if kind == domain.KindAudio {
		audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
		audio.Title = result.Title
		audio.Performer = result.Uploader
		audio.Duration = result.Duration
		_, err := b.api.Send(audio)
		return err
	}

	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = result.Title
	video.Duration = result.Duration
	video.SupportsStreaming = true
	_, err := b.api.Send(video)
	return err
}

// userFacingError turns a classified failure into a short human message.
func userFacingError(err error) string {
	switch domain.KindOf(err) {
	case domain.FailTooLarge:
		return "That file is too large to send over Telegram."
	case domain.FailUnavailable:
		return "This media is private, deleted or otherwise unavailable."
	case domain.FailAgeRestricted:
		return "This media is age-restricted and cannot be downloaded."
	case domain.FailRegionBlocked:
		return "This media is not available in the server's region."
	case domain.FailRateLimited:
		return "The source is rate limiting us, try again in a few minutes."
	case domain.FailTimeout:
		return "The download took too long and was cancelled."
	default:
		return "Could not download this link, sorry."
	}
}

// cleanupFiles removes downloaded artifacts and any now-empty slideshow dir.
func cleanupFiles(paths []string, logger *zap.Logger) {
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("cleanup failed", zap.String("path", p), zap.Error(err))
		}
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		// Remove on a directory only succeeds when it is empty.
		_ = os.Remove(dir)
	}
}
