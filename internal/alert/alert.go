// Package alert delivers operational notifications to a Telegram chat.
// It backs the slog Telegram handler so storage and payment failures reach
// an operator without anyone watching log files.
package alert

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"ideaforge/lib/sl"
)

type Notifier struct {
	api    *tgbotapi.Bot
	chatId int64
	log    *slog.Logger
}

func New(apiKey string, chatId int64, log *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{
		api:    api,
		chatId: chatId,
		log:    log.With(sl.Module("alert")),
	}, nil
}

// SendMessage delivers a MarkdownV2-formatted message. When Telegram
// rejects the markup, the message is retried as plain text so the alert is
// not lost to a formatting error.
func (n *Notifier) SendMessage(text string) {
	_, err := n.api.SendMessage(n.chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		n.log.With(slog.Int64("chat_id", n.chatId)).Warn("sending alert", sl.Err(err))
		_, err = n.api.SendMessage(n.chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			n.log.With(slog.Int64("chat_id", n.chatId)).Error("sending plain alert", sl.Err(err))
		}
	}
}

// Sanitize escapes Telegram MarkdownV2 reserved characters.
func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
