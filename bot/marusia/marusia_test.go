package marusia

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibot-dev/omnibot/bot"
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	ad, err := New(&bot.Gateway{
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return ad.(*Adapter)
}

func TestInit(t *testing.T) {

	a := testAdapter(t)
	c := &bot.Controller{}
	body := `{"session":{"message_id":3,"user":{"user_id":"m-1"}},
		"request":{"command":"Привет, Маруся","original_utterance":"Привет, Маруся"},
		"version":"1.0"}`
	require.NoError(t, a.Init([]byte(body), c))

	assert.Equal(t, "m-1", c.UserID)
	assert.Equal(t, "3", c.MessageID)
	assert.Equal(t, "привет, маруся", c.Command)
}

func TestInitNoIdentity(t *testing.T) {

	// unlike alisa there is no device application fallback
	a := testAdapter(t)
	err := a.Init([]byte(`{"session":{},"request":{"command":"привет"},"version":"1.0"}`), &bot.Controller{})
	assert.True(t, errors.Is(err, bot.ErrBadPayload), "got %v", err)
}

func TestStateBuckets(t *testing.T) {

	a := testAdapter(t)

	c := &bot.Controller{}
	body := `{"session":{"user_id":"m-1"},"request":{"command":"x"},
		"state":{"session":{"k":"s-val"}},"version":"1.0"}`
	require.NoError(t, a.Init([]byte(body), c))
	assert.Equal(t, BucketSession, c.StateBucket)

	data, err := a.LocalStorage(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "s-val", data["k"])

	require.NoError(t, a.SetLocalStorage(context.Background(), c, map[string]any{"k": "next"}))
	out, err := a.Response(c)
	require.NoError(t, err)
	res := out.(Response)
	assert.Equal(t, "next", res.SessionState["k"])
	assert.Nil(t, res.UserStateUpdate)

	// user bucket wins when both scopes arrive
	c = &bot.Controller{}
	body = `{"session":{"user_id":"m-1"},"request":{"command":"x"},
		"state":{"user":{"k":"u-val"},"session":{"k":"s-val"}},"version":"1.0"}`
	require.NoError(t, a.Init([]byte(body), c))
	assert.Equal(t, BucketUser, c.StateBucket)
}

func TestResponseButtons(t *testing.T) {

	a := testAdapter(t)
	c := &bot.Controller{
		Text:      "выбирайте",
		HasScreen: true,
		Buttons:   []bot.Button{{Title: "да"}, {Title: "нет"}},
	}
	out, err := a.Response(c)
	require.NoError(t, err)
	res := out.(Response)
	require.Len(t, res.Response.Buttons, 2)

	c.HasScreen = false
	out, err = a.Response(c)
	require.NoError(t, err)
	res = out.(Response)
	assert.Nil(t, res.Response.Buttons)
}
