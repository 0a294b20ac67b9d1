// Package vk adapts VK Callback API webhooks. A "confirmation" event is
// answered with the configured confirmation code verbatim; everything else
// is acknowledged with "ok" while replies go out through the VK API.
package vk

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	vkapi "github.com/SevereCloud/vksdk/v2/api"
	"github.com/pkg/errors"

	"github.com/omnibot-dev/omnibot/bot"
)

const (
	provider = "vk"

	textLimit = 4096
	timeLimit = 10 * time.Second
)

// Callback API event types handled here.
const (
	eventConfirmation = "confirmation"
	eventMessageNew   = "message_new"
)

func init() {
	bot.Register(bot.VK, New)
}

// Event is the Callback API envelope.
type Event struct {
	Type    string `json:"type"`
	GroupID int64  `json:"group_id"`
	EventID string `json:"event_id,omitempty"`
	Secret  string `json:"secret,omitempty"`
	Object  struct {
		Message *Message `json:"message,omitempty"`
	} `json:"object,omitempty"`
}

// Message is the message_new object.
type Message struct {
	ID      int64  `json:"id"`
	FromID  int64  `json:"from_id"`
	PeerID  int64  `json:"peer_id"`
	Text    string `json:"text"`
	Payload string `json:"payload,omitempty"`
}

// SendFunc performs one messages.send call.
type SendFunc func(params vkapi.Params) (int, error)

// Adapter implements bot.Adapter for VK communities.
type Adapter struct {
	gw           *bot.Gateway
	api          *vkapi.VK
	send         SendFunc
	secret       string
	confirmation string
}

// New builds the adapter. Metadata: "token" (community access token;
// without it outbound sends are skipped), "secret" (callback secret),
// "confirmation" (the code echoed on the confirmation event), "trace".
func New(gw *bot.Gateway) (bot.Adapter, error) {

	a := &Adapter{
		gw:           gw,
		secret:       gw.Option("secret", ""),
		confirmation: gw.Option("confirmation", ""),
	}

	token := gw.Option("token", "")
	if token == "" {
		gw.Log.Warn("vk: no community token; outbound sends disabled")
		return a, nil
	}

	a.api = vkapi.NewVK(token)
	trace, _ := strconv.ParseBool(gw.Option("trace", "false"))
	if client := bot.TraceClient(nil, gw.Log, trace); client != nil {
		a.api.Client = client
	}
	a.send = a.api.MessagesSend
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

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return errors.WithMessage(bot.ErrBadPayload, "vk: "+err.Error())
	}

	if a.secret != "" && event.Secret != a.secret {
		return errors.WithMessage(bot.ErrBadPayload, "vk: callback secret mismatch")
	}

	switch event.Type {
	case eventConfirmation:
		// the community webhook handshake: echo the code, nothing more
		c.SetInstantReply(a.confirmation)
		return nil

	case eventMessageNew:
		msg := event.Object.Message
		if msg == nil {
			return errors.WithMessage(bot.ErrBadPayload, "vk: message object missing")
		}
		c.UserID = strconv.FormatInt(msg.FromID, 10)
		c.MessageID = strconv.FormatInt(msg.ID, 10)
		c.SetCommand(strings.ToLower(strings.TrimSpace(msg.Text)), msg.Text)
		c.HasScreen = true
		c.UserMeta = map[string]any{
			"peer_id":  msg.PeerID,
			"group_id": event.GroupID,
		}
		if msg.Payload != "" {
			var payload map[string]any
			if json.Unmarshal([]byte(msg.Payload), &payload) == nil {
				c.UserMeta["payload"] = payload
			}
		}
		a.enrich(c, msg.FromID)
		c.RequestObject = &event
		return nil

	default:
		return errors.WithMessagef(bot.ErrBadPayload, "vk: event %q not supported", event.Type)
	}
}

// enrich resolves the sender's profile name, best effort.
func (a *Adapter) enrich(c *bot.Controller, userID int64) {
	if a.api == nil {
		return
	}
	users, err := a.api.UsersGet(vkapi.Params{
		"user_ids": strconv.FormatInt(userID, 10),
	})
	if err != nil || len(users) == 0 {
		a.gw.Log.Debug("vk: users.get",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return
	}
	c.UserMeta["first_name"] = users[0].FirstName
	c.UserMeta["last_name"] = users[0].LastName
}

// Response fires messages.send (best effort, logged on failure) and
// acknowledges the callback with "ok".
func (a *Adapter) Response(c *bot.Controller) (any, error) {

	bot.CheckDeadline(c, timeLimit)

	userID, err := strconv.ParseInt(c.UserID, 10, 64)
	if err != nil {
		return nil, errors.WithMessage(err, "vk: user id")
	}

	text := bot.Resize(c.Text, textLimit)
	if text != "" {
		params := vkapi.Params{
			"user_id":   userID,
			"message":   text,
			"random_id": time.Now().UnixNano(),
		}
		if keyboard := newKeyboard(c.Buttons); keyboard != nil {
			if blob, err := json.Marshal(keyboard); err == nil {
				params["keyboard"] = string(blob)
			}
		}
		a.deliver(params)
	}

	return "ok", nil
}

func (a *Adapter) deliver(params vkapi.Params) {
	send := a.send
	if send == nil {
		a.gw.Log.Warn("vk: send skipped; no community token")
		return
	}
	go func() {
		if _, err := send(params); err != nil {
			a.gw.Log.Error("vk: messages.send",
				slog.Any("error", err),
			)
		}
	}()
}

// keyboard is the VK bot keyboard JSON shape.
type keyboard struct {
	OneTime bool        `json:"one_time"`
	Inline  bool        `json:"inline"`
	Buttons [][]kbdItem `json:"buttons"`
}

type kbdItem struct {
	Action kbdAction `json:"action"`
	Color  string    `json:"color,omitempty"`
}

type kbdAction struct {
	Type    string `json:"type"` // text | open_link
	Label   string `json:"label,omitempty"`
	Link    string `json:"link,omitempty"`
	Payload string `json:"payload,omitempty"`
}

func newKeyboard(buttons []bot.Button) *keyboard {
	if len(buttons) == 0 {
		return nil
	}

	kbd := &keyboard{OneTime: true}
	row := make([]kbdItem, 0, len(buttons))
	for _, btn := range buttons {
		item := kbdItem{Color: "primary"}
		if btn.URL != "" {
			item.Action = kbdAction{
				Type:  "open_link",
				Label: btn.Title,
				Link:  btn.URL,
			}
			item.Color = "" // open_link buttons are colorless
		} else {
			item.Action = kbdAction{
				Type:  "text",
				Label: btn.Title,
			}
			if btn.Payload != nil {
				if blob, err := json.Marshal(btn.Payload); err == nil {
					item.Action.Payload = string(blob)
				}
			}
		}
		row = append(row, item)
	}
	kbd.Buttons = append(kbd.Buttons, row)
	return kbd
}
