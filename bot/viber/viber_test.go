package viber

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibot-dev/omnibot/bot"
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	ad, err := New(&bot.Gateway{
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Meta: map[string]string{"name": "testbot"},
	})
	require.NoError(t, err)
	return ad.(*Adapter)
}

func TestInitServiceEvents(t *testing.T) {

	a := testAdapter(t)
	for name, body := range map[string]string{
		"webhook":      `{"event":"webhook","timestamp":1}`,
		"subscribed":   `{"event":"subscribed","timestamp":1,"user":{"id":"v-1"}}`,
		"unsubscribed": `{"event":"unsubscribed","timestamp":1,"user_id":"v-1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := &bot.Controller{}
			require.NoError(t, a.Init([]byte(body), c))
			assert.Equal(t, "ok", c.InstantReply())
		})
	}
}

func TestInitConversationStarted(t *testing.T) {

	a := testAdapter(t)
	c := &bot.Controller{}
	body := `{"event":"conversation_started","message_token":42,
		"user":{"id":"v-1","name":"Ivan","country":"RU","language":"ru"}}`
	require.NoError(t, a.Init([]byte(body), c))

	// greeting turn: the dialog opened without an utterance
	assert.Nil(t, c.InstantReply())
	assert.Equal(t, "v-1", c.UserID)
	assert.Equal(t, "", c.Command)
	assert.Equal(t, "Ivan", c.UserMeta["name"])
}

func TestInitMessage(t *testing.T) {

	a := testAdapter(t)
	c := &bot.Controller{}
	body := `{"event":"message","message_token":43,
		"sender":{"id":"v-1","name":"Ivan"},
		"message":{"type":"text","text":" Привет, Viber "}}`
	require.NoError(t, a.Init([]byte(body), c))

	assert.Equal(t, "v-1", c.UserID)
	assert.Equal(t, "43", c.MessageID)
	assert.Equal(t, "привет, viber", c.Command)
}

func TestInitRejects(t *testing.T) {

	a := testAdapter(t)
	for name, body := range map[string]string{
		"unknown event":  `{"event":"delivered","message_token":1}`,
		"sender missing": `{"event":"message","message_token":1}`,
		"not json":       `event=message`,
	} {
		t.Run(name, func(t *testing.T) {
			err := a.Init([]byte(body), &bot.Controller{})
			assert.True(t, errors.Is(err, bot.ErrBadPayload), "got %v", err)
		})
	}
}

func TestResponseSends(t *testing.T) {

	a := testAdapter(t)
	sent := make(chan *sendMessage, 1)
	a.SetSender(func(msg *sendMessage) error {
		sent <- msg
		return nil
	})

	c := &bot.Controller{
		UserID:  "v-1",
		Text:    "ответ",
		Buttons: []bot.Button{{Title: "меню"}},
	}
	out, err := a.Response(c)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	select {
	case msg := <-sent:
		assert.Equal(t, "v-1", msg.Receiver)
		assert.Equal(t, "text", msg.Type)
		assert.Equal(t, "ответ", msg.Text)
		assert.Equal(t, "testbot", msg.Sender.Name)
		require.NotNil(t, msg.Keyboard)
		require.Len(t, msg.Keyboard.Buttons, 1)
		assert.Equal(t, "меню", msg.Keyboard.Buttons[0].Text)
	case <-time.After(time.Second):
		t.Fatal("send not fired")
	}
}

func TestResponseNoSender(t *testing.T) {

	a := testAdapter(t) // no token, no injected sender
	out, err := a.Response(&bot.Controller{UserID: "v-1", Text: "ответ"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
