// Package marusia adapts VK Marusia webhooks. The wire shapes mirror
// Yandex Dialogs closely but with a narrower surface: no anonymous
// application fallback for the user id, no account linking, and only the
// user and session state buckets.
//
// Marusia payloads are structurally indistinguishable from Alisa ones, so
// the platform is never auto-detected: pin the engine with
// bot.WithPlatform(bot.Marusia).
package marusia

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/omnibot-dev/omnibot/bot"
)

const (
	provider = "marusia"

	textLimit = 1024
	ttsLimit  = 1024
	timeLimit = 2800 * time.Millisecond
)

// State bucket names of the response envelope.
const (
	BucketUser    = "user_state_update"
	BucketSession = "session_state"
)

func init() {
	bot.Register(bot.Marusia, New)
}

// Request is the Marusia webhook payload.
type Request struct {
	Meta struct {
		Locale     string         `json:"locale"`
		Timezone   string         `json:"timezone"`
		ClientID   string         `json:"client_id"`
		Interfaces map[string]any `json:"interfaces"`
	} `json:"meta"`
	Session struct {
		MessageID int    `json:"message_id"`
		SessionID string `json:"session_id"`
		SkillID   string `json:"skill_id"`
		UserID    string `json:"user_id,omitempty"`
		User      *struct {
			UserID string `json:"user_id"`
		} `json:"user,omitempty"`
		New bool `json:"new"`
	} `json:"session"`
	Request struct {
		Command           string         `json:"command"`
		OriginalUtterance string         `json:"original_utterance"`
		Type              string         `json:"type"`
		Payload           map[string]any `json:"payload,omitempty"`
		NLU               *struct {
			Tokens   []string `json:"tokens"`
			Entities []any    `json:"entities"`
		} `json:"nlu,omitempty"`
	} `json:"request"`
	State *struct {
		User    map[string]any `json:"user,omitempty"`
		Session map[string]any `json:"session,omitempty"`
	} `json:"state,omitempty"`
	Version string `json:"version"`
}

// Response is the Marusia webhook reply envelope.
type Response struct {
	Response *Body `json:"response"`

	UserStateUpdate map[string]any `json:"user_state_update,omitempty"`
	SessionState    map[string]any `json:"session_state,omitempty"`

	Version string `json:"version"`
}

type Body struct {
	Text       string   `json:"text"`
	TTS        string   `json:"tts,omitempty"`
	EndSession bool     `json:"end_session"`
	Buttons    []Button `json:"buttons,omitempty"`
}

type Button struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Adapter implements bot.Adapter and bot.LocalStorage for Marusia.
type Adapter struct {
	gw           *bot.Gateway
	localStorage bool
}

func New(gw *bot.Gateway) (bot.Adapter, error) {
	local, err := strconv.ParseBool(gw.Option("local_storage", "true"))
	if err != nil {
		return nil, errors.New("marusia: local_storage: boolean option expected")
	}
	return &Adapter{
		gw:           gw,
		localStorage: local,
	}, nil
}

func (a *Adapter) String() string {
	return provider
}

func (a *Adapter) Init(raw []byte, c *bot.Controller) error {

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errors.WithMessage(bot.ErrBadPayload, "marusia: "+err.Error())
	}

	ses := req.Session
	// no application fallback: a session identity is mandatory
	switch {
	case ses.User != nil && ses.User.UserID != "":
		c.UserID = ses.User.UserID
	case ses.UserID != "":
		c.UserID = ses.UserID
	default:
		return errors.WithMessage(bot.ErrBadPayload, "marusia: session user id missing")
	}

	if req.Request.OriginalUtterance == "ping" {
		c.SetInstantReply(Response{
			Response: &Body{Text: "pong"},
			Version:  "1.0",
		})
		return nil
	}

	command := strings.ToLower(strings.TrimSpace(req.Request.Command))
	if command == "" && len(req.Request.Payload) > 0 {
		if blob, err := json.Marshal(req.Request.Payload); err == nil {
			command = string(blob)
		}
	}
	c.SetCommand(command, req.Request.OriginalUtterance)

	c.MessageID = strconv.Itoa(ses.MessageID)
	_, c.HasScreen = req.Meta.Interfaces["screen"]
	if req.Request.NLU != nil {
		c.NLU = bot.NLU{
			Tokens:   req.Request.NLU.Tokens,
			Entities: req.Request.NLU.Entities,
		}
	}
	c.UserMeta = map[string]any{
		"locale":    req.Meta.Locale,
		"timezone":  req.Meta.Timezone,
		"client_id": req.Meta.ClientID,
		"new":       ses.New,
	}
	if req.State != nil && req.State.Session != nil && req.State.User == nil {
		c.StateBucket = BucketSession
	} else {
		c.StateBucket = BucketUser
	}
	c.RequestObject = &req
	return nil
}

func (a *Adapter) Response(c *bot.Controller) (any, error) {

	bot.CheckDeadline(c, timeLimit)

	body := &Body{
		Text:       bot.Resize(c.Text, textLimit),
		TTS:        bot.Resize(c.TTS, ttsLimit),
		EndSession: c.EndSession,
	}
	if c.HasScreen {
		for _, btn := range c.Buttons {
			body.Buttons = append(body.Buttons, Button{
				Title:   btn.Title,
				URL:     btn.URL,
				Payload: btn.Payload,
			})
		}
	}

	res := Response{
		Response: body,
		Version:  "1.0",
	}
	if c.State != nil {
		if c.StateBucket == BucketSession {
			res.SessionState = c.State
		} else {
			res.UserStateUpdate = c.State
		}
	}
	return res, nil
}

func (a *Adapter) LocalStorageEnabled() bool {
	return a.localStorage
}

func (a *Adapter) LocalStorage(_ context.Context, c *bot.Controller) (map[string]any, error) {
	req, ok := c.RequestObject.(*Request)
	if !ok || req.State == nil {
		return nil, nil
	}
	if c.StateBucket == BucketSession {
		return req.State.Session, nil
	}
	return req.State.User, nil
}

func (a *Adapter) SetLocalStorage(_ context.Context, c *bot.Controller, data map[string]any) error {
	c.State = data
	return nil
}
