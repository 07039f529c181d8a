package offsite

import (
	"context"
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appconfig "github.com/semmidev/dbswap/internal/config"
)

// telegramFileLimit is the bot API upload cap in MB.
const telegramFileLimit = 50

// TelegramTarget notifies an operator chat about snapshots and optionally
// ships small snapshot files into the chat.
type TelegramTarget struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	sendFile   bool
	notifyOnly bool
}

func NewTelegram(cfg *appconfig.OffsiteTarget) (*TelegramTarget, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	var chatID int64
	fmt.Sscanf(cfg.ChatID, "%d", &chatID)

	return &TelegramTarget{
		bot:        bot,
		chatID:     chatID,
		sendFile:   cfg.SendFile,
		notifyOnly: cfg.NotifyOnly,
	}, nil
}

func (t *TelegramTarget) Upload(ctx context.Context, localPath string, remoteName string) error {
	fileInfo, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}

	fileSizeMB := float64(fileInfo.Size()) / (1024 * 1024)

	if t.notifyOnly || !t.sendFile || fileSizeMB > telegramFileLimit {
		message := fmt.Sprintf(
			"✅ Snapshot Created\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %.2f MB\n"+
				"🕐 Time: %s",
			remoteName,
			fileSizeMB,
			fileInfo.ModTime().Format("2006-01-02 15:04:05"),
		)

		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, message)); err != nil {
			return fmt.Errorf("failed to send telegram notification: %w", err)
		}
		return nil
	}

	document := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(localPath))
	document.Caption = fmt.Sprintf("📦 Snapshot: %s (%.2f MB)", remoteName, fileSizeMB)

	if _, err := t.bot.Send(document); err != nil {
		return fmt.Errorf("failed to send telegram file: %w", err)
	}

	return nil
}

// List is unsupported: Telegram keeps no browsable archive.
func (t *TelegramTarget) List(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func (t *TelegramTarget) Delete(ctx context.Context, remoteName string) error {
	return nil
}

func (t *TelegramTarget) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	return []string{}, nil
}

// SendNotification pushes a plain operator message to the chat.
func (t *TelegramTarget) SendNotification(message string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, message))
	return err
}
