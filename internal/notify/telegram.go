// Package notify delivers briefings to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"runcoach/internal/observability"
)

// MaxMessageLength is Telegram's limit for a single text message.
const MaxMessageLength = 4096

var ErrNoChat = errors.New("telegram chat id not configured")

// Sender is the part of the bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends Markdown text to one chat.
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram connects to the bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	log.Debug().Str("bot", bot.Self.UserName).Msg("telegram bot ready")
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender wraps an existing sender.
func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// Send delivers text, split into chunks under MaxMessageLength. A chunk the
// API rejects as Markdown is resent as plain text.
func (t *Telegram) Send(ctx context.Context, text string) (err error) {
	defer func() {
		observability.RecordBriefing(err)
	}()

	if t.chatID == 0 {
		return ErrNoChat
	}

	for _, chunk := range splitMessage(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(t.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.bot.Send(msg); err != nil {
			log.Warn().Err(err).Msg("markdown rejected, sending plain text")
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("sending message: %w", err)
			}
		}
	}

	log.Info().Int64("chat_id", t.chatID).Int("chars", len(text)).Msg("message sent")
	return nil
}

// splitMessage breaks text on line boundaries into pieces of at most limit
// bytes. A single line longer than limit is cut between runes.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := runeCut(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// runeCut returns the largest index <= limit that starts a rune in s.
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
