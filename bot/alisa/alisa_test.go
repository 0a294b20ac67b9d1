package alisa

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibot-dev/omnibot/bot"
)

func testAdapter(t *testing.T, meta map[string]string) *Adapter {
	t.Helper()
	ad, err := New(&bot.Gateway{
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Meta: meta,
	})
	require.NoError(t, err)
	return ad.(*Adapter)
}

func TestInitIdentity(t *testing.T) {

	cases := []struct {
		name      string
		body      string
		wantUser  string
		wantToken string
	}{
		{
			name: "authorized user wins",
			body: `{"session":{"user_id":"legacy","user":{"user_id":"u-new","access_token":"tok"},
				"application":{"application_id":"app"}},"request":{"command":"привет"},"version":"1.0"}`,
			wantUser:  "u-new",
			wantToken: "tok",
		},
		{
			name:     "legacy session id",
			body:     `{"session":{"user_id":"legacy"},"request":{"command":"привет"},"version":"1.0"}`,
			wantUser: "legacy",
		},
		{
			name:     "anonymous device",
			body:     `{"session":{"application":{"application_id":"app-1"}},"request":{"command":"привет"},"version":"1.0"}`,
			wantUser: "app-1",
		},
	}

	a := testAdapter(t, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &bot.Controller{}
			require.NoError(t, a.Init([]byte(tc.body), c))
			assert.Equal(t, tc.wantUser, c.UserID)
			assert.Equal(t, tc.wantToken, c.AuthToken)
		})
	}
}

func TestInitNoIdentity(t *testing.T) {

	a := testAdapter(t, nil)
	for name, body := range map[string]string{
		"empty session": `{"session":{},"request":{"command":"привет"},"version":"1.0"}`,
		"user without id": `{"session":{"user":{}},
			"request":{"command":"привет"},"version":"1.0"}`,
		"token only": `{"session":{"user":{"access_token":"tok"}},
			"request":{"command":"привет"},"version":"1.0"}`,
		"application without id": `{"session":{"application":{}},
			"request":{"command":"привет"},"version":"1.0"}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := a.Init([]byte(body), &bot.Controller{})
			assert.True(t, errors.Is(err, bot.ErrBadPayload), "got %v", err)
		})
	}
}

func TestInitNormalization(t *testing.T) {

	a := testAdapter(t, nil)
	c := &bot.Controller{}
	body := `{"session":{"user_id":"u"},"request":{"command":"  Привет, Алиса  ",
		"original_utterance":"Привет, Алиса!"},"version":"1.0"}`
	require.NoError(t, a.Init([]byte(body), c))

	assert.Equal(t, "привет, алиса", c.Command)
	assert.Equal(t, "Привет, Алиса!", c.OriginalCommand)
}

func TestInitButtonPayload(t *testing.T) {

	a := testAdapter(t, nil)
	c := &bot.Controller{}
	body := `{"session":{"user_id":"u"},"request":{"command":"","type":"ButtonPressed",
		"payload":{"action":"confirm"}},"version":"1.0"}`
	require.NoError(t, a.Init([]byte(body), c))

	// structured payload becomes the command when no utterance came
	assert.Contains(t, c.Command, `"action":"confirm"`)
}

func TestInitPing(t *testing.T) {

	a := testAdapter(t, nil)
	c := &bot.Controller{}
	body := `{"session":{"user_id":"u"},"request":{"original_utterance":"ping"},"version":"1.0"}`
	require.NoError(t, a.Init([]byte(body), c))

	res, ok := c.InstantReply().(Response)
	require.True(t, ok)
	assert.Equal(t, "pong", res.Response.Text)
}

func TestResponseScreenGating(t *testing.T) {

	a := testAdapter(t, nil)
	c := &bot.Controller{
		Text:    "ответ",
		Buttons: []bot.Button{{Title: "да", Hide: true}},
		Card: &bot.Card{
			Images: []bot.CardImage{{ImageID: "img-1", Title: "картинка"}},
		},
	}

	// voice-only surface: no buttons, no cards
	out, err := a.Response(c)
	require.NoError(t, err)
	res := out.(Response)
	assert.Nil(t, res.Response.Buttons)
	assert.Nil(t, res.Response.Card)

	c.HasScreen = true
	out, err = a.Response(c)
	require.NoError(t, err)
	res = out.(Response)
	require.Len(t, res.Response.Buttons, 1)
	assert.Equal(t, "да", res.Response.Buttons[0].Title)
	require.NotNil(t, res.Response.Card)
	assert.Equal(t, "BigImage", res.Response.Card.Type)
}

func TestResponseResize(t *testing.T) {

	a := testAdapter(t, nil)
	c := &bot.Controller{
		Text: strings.Repeat("о", 3000),
		TTS:  strings.Repeat("а", 3000),
	}
	out, err := a.Response(c)
	require.NoError(t, err)

	res := out.(Response)
	assert.Len(t, []rune(res.Response.Text), 1024)
	assert.Len(t, []rune(res.Response.TTS), 1024)
	assert.True(t, strings.HasSuffix(res.Response.Text, "..."))
}

func TestStateBuckets(t *testing.T) {

	a := testAdapter(t, nil)

	cases := []struct {
		name   string
		body   string
		bucket string
		value  string
	}{
		{
			name:   "user scope",
			body:   `{"session":{"user_id":"u"},"request":{"command":"x"},"state":{"user":{"k":"u-val"}},"version":"1.0"}`,
			bucket: BucketUser,
			value:  "u-val",
		},
		{
			name:   "application scope",
			body:   `{"session":{"user_id":"u"},"request":{"command":"x"},"state":{"application":{"k":"a-val"}},"version":"1.0"}`,
			bucket: BucketApplication,
			value:  "a-val",
		},
		{
			name:   "session scope",
			body:   `{"session":{"user_id":"u"},"request":{"command":"x"},"state":{"session":{"k":"s-val"}},"version":"1.0"}`,
			bucket: BucketSession,
			value:  "s-val",
		},
		{
			name:   "no state defaults to user",
			body:   `{"session":{"user_id":"u"},"request":{"command":"x"},"version":"1.0"}`,
			bucket: BucketUser,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &bot.Controller{}
			require.NoError(t, a.Init([]byte(tc.body), c))
			assert.Equal(t, tc.bucket, c.StateBucket)

			data, err := a.LocalStorage(context.Background(), c)
			require.NoError(t, err)
			if tc.value == "" {
				assert.Nil(t, data)
				return
			}
			assert.Equal(t, tc.value, data["k"])

			// the write lands in the same bucket of the envelope
			require.NoError(t, a.SetLocalStorage(context.Background(), c, map[string]any{"k": "next"}))
			out, err := a.Response(c)
			require.NoError(t, err)
			res := out.(Response)
			switch tc.bucket {
			case BucketApplication:
				assert.Equal(t, "next", res.ApplicationState["k"])
			case BucketSession:
				assert.Equal(t, "next", res.SessionState["k"])
			default:
				assert.Equal(t, "next", res.UserStateUpdate["k"])
			}
		})
	}
}

func TestLocalStorageOption(t *testing.T) {

	a := testAdapter(t, nil)
	assert.True(t, a.LocalStorageEnabled())

	a = testAdapter(t, map[string]string{"local_storage": "false"})
	assert.False(t, a.LocalStorageEnabled())

	_, err := New(&bot.Gateway{
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Meta: map[string]string{"local_storage": "maybe"},
	})
	assert.Error(t, err)
}
