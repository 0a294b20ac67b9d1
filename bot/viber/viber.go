// Package viber adapts Viber Bot API webhooks. Webhook registration
// callbacks are acknowledged straight away; message replies go out through
// the REST API while the webhook body answers "ok".
package viber

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/omnibot-dev/omnibot/bot"
)

const (
	provider = "viber"

	textLimit = 7000
	timeLimit = 10 * time.Second
)

// Update event types.
const (
	updateWebhook    = "webhook"
	updateNewDialog  = "conversation_started"
	updateNewMessage = "message"
	updateJoined     = "subscribed"
	updateLeft       = "unsubscribed"
)

func init() {
	bot.Register(bot.Viber, New)
}

// Update is the inbound webhook event.
type Update struct {
	Event        string   `json:"event"`
	Timestamp    int64    `json:"timestamp"`
	MessageToken uint64   `json:"message_token"`
	Sender       *User    `json:"sender,omitempty"` // [message]
	User         *User    `json:"user,omitempty"`   // [conversation_started, subscribed]
	UserID       string   `json:"user_id,omitempty"`
	Message      *Message `json:"message,omitempty"`
}

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Country string `json:"country,omitempty"`
	Lang    string `json:"language,omitempty"`
}

type Message struct {
	Type  string `json:"type"` // text | picture | ...
	Text  string `json:"text,omitempty"`
	Media string `json:"media,omitempty"`
}

// SendFunc performs one send_message call.
type SendFunc func(msg *sendMessage) error

// Adapter implements bot.Adapter for Viber.
type Adapter struct {
	gw     *bot.Gateway
	token  string
	sender *Sender
	client *http.Client
	send   SendFunc
}

// New builds the adapter. Metadata: "token" (bot auth token; without it
// outbound sends are skipped), "name" (sender display name), "trace".
func New(gw *bot.Gateway) (bot.Adapter, error) {

	a := &Adapter{
		gw:    gw,
		token: gw.Option("token", ""),
		sender: &Sender{
			Name: gw.Option("name", "bot"),
		},
	}
	if a.token == "" {
		gw.Log.Warn("viber: no auth token; outbound sends disabled")
		return a, nil
	}

	trace, _ := strconv.ParseBool(gw.Option("trace", "false"))
	a.client = bot.TraceClient(nil, gw.Log, trace)
	a.send = func(msg *sendMessage) error {
		var res SendResponse
		if err := a.do(msg, &res); err != nil {
			return err
		}
		return res.Err()
	}
	return a, nil
}

// SetSender overrides message delivery; tests use it to capture sends.
func (a *Adapter) SetSender(send SendFunc) {
	a.send = send
}

func (a *Adapter) String() string {
	return provider
}

func (a *Adapter) Init(raw []byte, c *bot.Controller) error {

	var event Update
	if err := json.Unmarshal(raw, &event); err != nil {
		return errors.WithMessage(bot.ErrBadPayload, "viber: "+err.Error())
	}

	switch event.Event {
	case updateWebhook:
		// set_webhook callback probe
		c.SetInstantReply("ok")
		return nil

	case updateNewDialog:
		// a user opened the dialog: no utterance yet, greeting turn
		if event.User == nil || event.User.ID == "" {
			return errors.WithMessage(bot.ErrBadPayload, "viber: dialog user missing")
		}
		c.UserID = event.User.ID
		c.SetCommand("", "")
		a.meta(c, event.User)

	case updateNewMessage:
		if event.Sender == nil || event.Message == nil {
			return errors.WithMessage(bot.ErrBadPayload, "viber: sender or message missing")
		}
		c.UserID = event.Sender.ID
		c.SetCommand(
			strings.ToLower(strings.TrimSpace(event.Message.Text)),
			event.Message.Text,
		)
		a.meta(c, event.Sender)

	case updateJoined, updateLeft:
		// membership notices carry no dialog turn
		c.SetInstantReply("ok")
		return nil

	default:
		return errors.WithMessagef(bot.ErrBadPayload, "viber: event %q not supported", event.Event)
	}

	c.MessageID = strconv.FormatUint(event.MessageToken, 10)
	c.HasScreen = true
	c.RequestObject = &event
	return nil
}

func (a *Adapter) meta(c *bot.Controller, user *User) {
	c.UserMeta = map[string]any{
		"name":     user.Name,
		"country":  user.Country,
		"language": user.Lang,
	}
}

// Response fires send_message (best effort, logged on failure) and
// acknowledges the webhook with "ok".
func (a *Adapter) Response(c *bot.Controller) (any, error) {

	bot.CheckDeadline(c, timeLimit)

	text := bot.Resize(c.Text, textLimit)
	if text != "" {
		msg := &sendMessage{
			Receiver: c.UserID,
			Type:     "text",
			Sender:   a.sender,
			Text:     text,
			Keyboard: newKeyboard(c.Buttons),
		}
		a.deliver(msg)
	}

	return "ok", nil
}

func (a *Adapter) deliver(msg *sendMessage) {
	send := a.send
	if send == nil {
		a.gw.Log.Warn("viber: send skipped; no auth token")
		return
	}
	go func() {
		if err := send(msg); err != nil {
			a.gw.Log.Error("viber: send_message",
				slog.Any("error", err),
			)
		}
	}()
}
