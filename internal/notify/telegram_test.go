package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent       []tgbotapi.MessageConfig
	rejectMode string
	err        error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if f.rejectMode != "" && msg.ParseMode == f.rejectMode {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestTelegramSend(t *testing.T) {
	bot := &fakeBot{}
	tg := NewTelegramWithSender(bot, 12345)

	require.NoError(t, tg.Send(context.Background(), "*Morning briefing*"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(12345), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, bot.sent[0].ParseMode)
	assert.Equal(t, "*Morning briefing*", bot.sent[0].Text)
}

func TestTelegramSend_PlainFallback(t *testing.T) {
	bot := &fakeBot{rejectMode: tgbotapi.ModeMarkdown}
	tg := NewTelegramWithSender(bot, 1)

	require.NoError(t, tg.Send(context.Background(), "unbalanced *bold"))
	require.Len(t, bot.sent, 2)
	assert.Empty(t, bot.sent[1].ParseMode)
}

func TestTelegramSend_Errors(t *testing.T) {
	err := NewTelegramWithSender(&fakeBot{}, 0).Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoChat)

	err = NewTelegramWithSender(&fakeBot{err: errors.New("unauthorized")}, 1).Send(context.Background(), "hi")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bot := &fakeBot{}
	err = NewTelegramWithSender(bot, 1).Send(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bot.sent)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	chunks := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, chunks)

	long := strings.Repeat("x", 25)
	chunks = splitMessage("hi\n"+long, 10)
	assert.Equal(t, "hi\n", chunks[0])
	assert.Equal(t, long, strings.Join(chunks[1:], ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 10)
	}
}

func TestSplitMessage_MultiByte(t *testing.T) {
	// 3-byte runes never line up with a 10-byte limit
	line := strings.Repeat("ạ", 12) + "🏃"
	chunks := splitMessage("Chạy\n"+line, 10)

	assert.Equal(t, "Chạy\n", chunks[0])
	assert.Equal(t, line, strings.Join(chunks[1:], ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 10)
		assert.True(t, utf8.ValidString(c), "chunk %q is not valid UTF-8", c)
	}
}
