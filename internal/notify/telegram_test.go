package notify

import (
	"context"
	"errors"
	"testing"

	"livechat/backend/internal/localization"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestNotifyHandoff_FormatsMessage(t *testing.T) {
	bot := &fakeBot{}
	n := newTelegram(bot, 42, localization.Default().Lang("en"))

	require.NoError(t, n.NotifyHandoff(context.Background(), "conv_1", "Budi", "no knowledge-base match"))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "Conversation conv_1 needs a human agent (no knowledge-base match). Visitor: Budi", msg.Text)
}

func TestNotifyHandoff_UnknownVisitor(t *testing.T) {
	n := newTelegram(&fakeBot{}, 42, localization.Default().Lang("en"))
	assert.Contains(t, n.format("conv_1", "", "x"), "Visitor: Unknown User")
}

func TestNotifyHandoff_Errors(t *testing.T) {
	bot := &fakeBot{err: errors.New("flood control")}
	n := newTelegram(bot, 42, localization.Default().Lang("en"))
	assert.ErrorContains(t, n.NotifyHandoff(context.Background(), "conv_1", "Budi", "x"), "flood control")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.NotifyHandoff(ctx, "conv_1", "Budi", "x"), context.Canceled)
	assert.Len(t, bot.sent, 1)
}
