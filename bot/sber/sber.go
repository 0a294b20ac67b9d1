// Package sber adapts Sber SmartApp webhooks. The platform has no inline
// state channel; instead user state lives in a key-value store addressed
// by the composite uuid, which the adapter exposes through the engine's
// local-storage capability.
package sber

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/omnibot-dev/omnibot/bot"
	"github.com/omnibot-dev/omnibot/store"
)

const (
	provider = "sber"

	bubbleLimit = 250
	ttsLimit    = 1024
	timeLimit   = 5 * time.Second
)

const defaultEmotion = "ok_prinyato"

func init() {
	bot.Register(bot.Sber, New)
}

// Adapter implements bot.Adapter, bot.LocalStorage and bot.RatingResponder
// for SmartApp.
type Adapter struct {
	gw    *bot.Gateway
	users store.Users
}

// New builds the adapter; the gateway's store handle backs the per-user
// key-value state.
func New(gw *bot.Gateway) (bot.Adapter, error) {
	return &Adapter{
		gw:    gw,
		users: gw.Users,
	}, nil
}

func (a *Adapter) String() string {
	return provider
}

func (a *Adapter) Init(raw []byte, c *bot.Controller) error {

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errors.WithMessage(bot.ErrBadPayload, "sber: "+err.Error())
	}
	if req.UUID.UserID == "" && req.UUID.Sub == "" {
		return errors.WithMessage(bot.ErrBadPayload, "sber: uuid missing")
	}

	// composite uuid: sub is stable across surfaces, userId per device
	if req.UUID.Sub != "" {
		c.UserID = req.UUID.Sub
	} else {
		c.UserID = req.UUID.UserID
	}
	c.MessageID = strconv.FormatInt(req.MessageID, 10)

	var command, original string
	switch req.MessageName {
	case MessageToSkill, RunApp, CloseApp, "":
		if msg := req.Payload.Message; msg != nil {
			original = msg.OriginalText
			command = msg.NormalizedText
			if command == "" {
				command = msg.AsrNormalized
			}
		}
	case ServerAction:
		if act := req.Payload.Action; act != nil {
			command = act.ActionID
			original = act.ActionID
			if len(act.Parameters) > 0 {
				if blob, err := json.Marshal(act.Parameters); err == nil {
					original = string(blob)
				}
			}
		}
	case RatingResult:
		if rate := req.Payload.Rating; rate != nil {
			command = "rating " + strconv.Itoa(rate.Estimation)
			original = command
		}
	default:
		return errors.WithMessagef(bot.ErrBadPayload, "sber: message %q not supported", req.MessageName)
	}
	c.SetCommand(strings.ToLower(strings.TrimSpace(command)), original)

	if dev := req.Payload.Device; dev != nil {
		_, c.HasScreen = dev.Capabilities["screen"]
	}
	c.UserMeta = map[string]any{
		"channel":     req.UUID.UserChannel,
		"new_session": req.Payload.NewSession,
	}
	if ch := req.Payload.Character; ch != nil {
		c.UserMeta["character"] = ch.Name
		c.UserMeta["appeal"] = ch.Appeal
	}
	c.RequestObject = &req
	return nil
}

func (a *Adapter) Response(c *bot.Controller) (any, error) {
	return a.respond(c, AnswerToUser), nil
}

// RatingResponse asks the assistant to collect a dialog rating.
func (a *Adapter) RatingResponse(c *bot.Controller) (any, error) {
	return a.respond(c, CallRating), nil
}

func (a *Adapter) respond(c *bot.Controller, messageName string) Response {

	bot.CheckDeadline(c, timeLimit)

	req, _ := c.RequestObject.(*Request)

	res := Response{
		MessageName: messageName,
		Payload: ResponsePayload{
			PronounceText: bot.Resize(speech(c), ttsLimit),
			Finished:      c.EndSession,
		},
	}
	if req != nil {
		res.SessionID = req.SessionID
		res.MessageID = req.MessageID
		res.UUID = req.UUID
		res.Payload.Device = req.Payload.Device
		res.Payload.Intent = req.Payload.Intent
	}

	emotion := c.Emotion
	if emotion == "" {
		emotion = defaultEmotion
	}
	res.Payload.Emotion = &Emotion{EmotionID: emotion}

	if c.Text != "" {
		res.Payload.Items = append(res.Payload.Items, Item{
			Bubble: &Bubble{Text: bot.Resize(c.Text, bubbleLimit)},
		})
	}
	if c.HasScreen {
		if card := newCard(c.Card); card != nil {
			res.Payload.Items = append(res.Payload.Items, Item{Card: card})
		}
		res.Payload.Suggestions = newSuggestions(c.Buttons)
	}
	if c.EndSession {
		res.Payload.Items = append(res.Payload.Items, Item{
			Command: &Command{Type: "close_app"},
		})
	}
	return res
}

func speech(c *bot.Controller) string {
	if c.TTS != "" {
		return c.TTS
	}
	return c.Text
}

// LocalStorageEnabled: state always lives in the remote key-value store
// when one is attached.
func (a *Adapter) LocalStorageEnabled() bool {
	return a.users != nil
}

func (a *Adapter) LocalStorage(ctx context.Context, c *bot.Controller) (map[string]any, error) {
	user, err := a.users.Get(ctx, a.key(c))
	if err != nil || user == nil {
		return nil, err
	}
	return user.Data, nil
}

func (a *Adapter) SetLocalStorage(ctx context.Context, c *bot.Controller, data map[string]any) error {
	return a.users.Put(ctx, &store.User{
		ID:        a.key(c),
		Data:      data,
		UpdatedAt: time.Now(),
	})
}

func (a *Adapter) key(c *bot.Controller) string {
	return provider + ":" + c.UserID
}
