package telegram

import (
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibot-dev/omnibot/bot"
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	// no token: sends disabled unless a test injects its own sender
	ad, err := New(&bot.Gateway{
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Meta: map[string]string{},
	})
	require.NoError(t, err)
	return ad.(*Adapter)
}

func TestInitMessage(t *testing.T) {

	a := testAdapter(t)
	c := &bot.Controller{}
	body := `{
		"update_id": 100,
		"message": {
			"message_id": 5,
			"text": "Привет, Бот",
			"chat": {"id": 123456},
			"from": {"id": 123456, "first_name": "Ivan", "username": "ivan", "language_code": "ru"}
		}
	}`
	require.NoError(t, a.Init([]byte(body), c))

	assert.Equal(t, "123456", c.UserID)
	assert.Equal(t, "5", c.MessageID)
	assert.Equal(t, "привет, бот", c.Command)
	assert.Equal(t, "Привет, Бот", c.OriginalCommand)
	assert.True(t, c.HasScreen)
	assert.Equal(t, "ivan", c.UserMeta["username"])
}

func TestInitCallbackQuery(t *testing.T) {

	a := testAdapter(t)
	c := &bot.Controller{}
	body := `{
		"update_id": 101,
		"callback_query": {
			"id": "cbq-1",
			"data": "Confirm",
			"from": {"id": 123456},
			"message": {"message_id": 6, "chat": {"id": 123456}}
		}
	}`
	require.NoError(t, a.Init([]byte(body), c))

	assert.Equal(t, "123456", c.UserID)
	assert.Equal(t, "cbq-1", c.MessageID)
	assert.Equal(t, "confirm", c.Command)
}

func TestInitRejects(t *testing.T) {

	a := testAdapter(t)
	for name, body := range map[string]string{
		"no update":    `{"update_id": 102}`,
		"chat missing": `{"update_id": 103, "message": {"message_id": 1}}`,
		"not json":     `update_id=1`,
	} {
		t.Run(name, func(t *testing.T) {
			err := a.Init([]byte(body), &bot.Controller{})
			assert.True(t, errors.Is(err, bot.ErrBadPayload), "got %v", err)
		})
	}
}

func TestResponseSends(t *testing.T) {

	a := testAdapter(t)
	sent := make(chan tgbotapi.Chattable, 1)
	a.SetSender(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		sent <- c
		return tgbotapi.Message{}, nil
	})

	c := &bot.Controller{
		UserID: "123456",
		Text:   "ответ",
		Buttons: []bot.Button{
			{Title: "да"},
			{Title: "нет"},
		},
	}
	out, err := a.Response(c)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	select {
	case chattable := <-sent:
		msg, ok := chattable.(tgbotapi.MessageConfig)
		require.True(t, ok, "sent %T", chattable)
		assert.Equal(t, int64(123456), msg.ChatID)
		assert.Equal(t, "ответ", msg.Text)
		markup, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		require.True(t, ok, "markup %T", msg.ReplyMarkup)
		require.Len(t, markup.Keyboard, 1)
		assert.Len(t, markup.Keyboard[0], 2)
	case <-time.After(time.Second):
		t.Fatal("send not fired")
	}
}

func TestResponseInlineKeyboard(t *testing.T) {

	a := testAdapter(t)
	sent := make(chan tgbotapi.Chattable, 1)
	a.SetSender(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		sent <- c
		return tgbotapi.Message{}, nil
	})

	c := &bot.Controller{
		UserID: "123456",
		Text:   "подробнее на сайте",
		Buttons: []bot.Button{
			{Title: "открыть", URL: "https://example.com"},
			{Title: "позже"},
		},
	}
	_, err := a.Response(c)
	require.NoError(t, err)

	select {
	case chattable := <-sent:
		msg := chattable.(tgbotapi.MessageConfig)
		// a URL button forces the whole keyboard inline
		markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		require.True(t, ok, "markup %T", msg.ReplyMarkup)
		require.Len(t, markup.InlineKeyboard, 1)
		require.Len(t, markup.InlineKeyboard[0], 2)
		require.NotNil(t, markup.InlineKeyboard[0][0].URL)
		assert.Equal(t, "https://example.com", *markup.InlineKeyboard[0][0].URL)
	case <-time.After(time.Second):
		t.Fatal("send not fired")
	}
}

func TestResponseEmptyTextSkipsSend(t *testing.T) {

	a := testAdapter(t)
	a.SetSender(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		t.Error("send fired for empty text")
		return tgbotapi.Message{}, nil
	})

	out, err := a.Response(&bot.Controller{UserID: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestResponseBadChatID(t *testing.T) {

	a := testAdapter(t)
	_, err := a.Response(&bot.Controller{UserID: "not-a-number", Text: "x"})
	assert.Error(t, err)
}
