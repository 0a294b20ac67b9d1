// Package alisa adapts Yandex Dialogs (Alice) webhooks to the canonical
// controller. The platform answers within the HTTP response body and can
// carry skill state inline in one of three buckets.
package alisa

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
	provider = "alisa"

	textLimit = 1024
	ttsLimit  = 1024
	// the platform drops the connection at 3s; keep a safety margin
	timeLimit = 2800 * time.Millisecond
)

// State bucket names of the response envelope.
const (
	BucketUser        = "user_state_update"
	BucketApplication = "application_state"
	BucketSession     = "session_state"
)

func init() {
	bot.Register(bot.Alisa, New)
}

// Adapter implements bot.Adapter and bot.LocalStorage for Yandex Dialogs.
type Adapter struct {
	gw           *bot.Gateway
	localStorage bool
}

// New builds the adapter from gateway metadata. Option "local_storage"
// (default true) lets a deployment force the external store instead of
// inline state.
func New(gw *bot.Gateway) (bot.Adapter, error) {
	local, err := strconv.ParseBool(gw.Option("local_storage", "true"))
	if err != nil {
		return nil, errors.New("alisa: local_storage: boolean option expected")
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
		return errors.WithMessage(bot.ErrBadPayload, "alisa: "+err.Error())
	}

	ses := req.Session
	if ses.UserID == "" && ses.User == nil && ses.Application == nil {
		return errors.WithMessage(bot.ErrBadPayload, "alisa: session identity missing")
	}

	// Yandex liveness probe
	if req.Request.OriginalUtterance == "ping" {
		c.SetInstantReply(Response{
			Response: &Body{Text: "pong"},
			Version:  "1.0",
		})
		return nil
	}

	switch {
	case ses.User != nil && ses.User.UserID != "":
		c.UserID = ses.User.UserID
	case ses.UserID != "":
		c.UserID = ses.UserID
	case ses.Application != nil && ses.Application.ApplicationID != "":
		// anonymous: fall back to the device application id
		c.UserID = ses.Application.ApplicationID
	default:
		// session.user present but carrying no id
		return errors.WithMessage(bot.ErrBadPayload, "alisa: session identity missing")
	}
	if ses.User != nil {
		c.AuthToken = ses.User.AccessToken
	}

	command := strings.ToLower(strings.TrimSpace(req.Request.Command))
	if command == "" && len(req.Request.Payload) > 0 {
		// structured button payload instead of an utterance
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
	c.StateBucket = pickBucket(req.State)
	c.RequestObject = &req
	return nil
}

// pickBucket chooses where state goes back: whichever scope the platform
// presented on the request, user-scoped first.
func pickBucket(state *State) string {
	if state != nil {
		switch {
		case state.User != nil:
			return BucketUser
		case state.Application != nil:
			return BucketApplication
		case state.Session != nil:
			return BucketSession
		}
	}
	return BucketUser
}

func (a *Adapter) Response(c *bot.Controller) (any, error) {

	bot.CheckDeadline(c, timeLimit)

	body := &Body{
		Text:       bot.Resize(c.Text, textLimit),
		TTS:        bot.Resize(c.TTS, ttsLimit),
		EndSession: c.EndSession,
	}
	if c.HasScreen {
		body.Card = newCard(c.Card)
		body.Buttons = newButtons(c.Buttons)
	}

	res := Response{
		Response: body,
		Version:  "1.0",
	}
	if c.State != nil {
		switch c.StateBucket {
		case BucketApplication:
			res.ApplicationState = c.State
		case BucketSession:
			res.SessionState = c.State
		default:
			res.UserStateUpdate = c.State
		}
	}
	return res, nil
}

// LocalStorageEnabled reports whether state rides inline in the envelope.
func (a *Adapter) LocalStorageEnabled() bool {
	return a.localStorage
}

// LocalStorage returns the state bucket the platform sent on this request.
func (a *Adapter) LocalStorage(_ context.Context, c *bot.Controller) (map[string]any, error) {
	req, ok := c.RequestObject.(*Request)
	if !ok || req.State == nil {
		return nil, nil
	}
	switch c.StateBucket {
	case BucketApplication:
		return req.State.Application, nil
	case BucketSession:
		return req.State.Session, nil
	default:
		return req.State.User, nil
	}
}

// SetLocalStorage stages data to ride back in the response envelope.
func (a *Adapter) SetLocalStorage(_ context.Context, c *bot.Controller, data map[string]any) error {
	c.State = data
	return nil
}
