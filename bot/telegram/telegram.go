// Package telegram adapts Telegram Bot API webhooks. Replies are not
// carried in the webhook response: the adapter fires messages through the
// Bot API client and answers the webhook with a literal "ok".
package telegram

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/omnibot-dev/omnibot/bot"
)

const (
	provider = "telegram"

	textLimit = 4096
	timeLimit = 10 * time.Second
)

func init() {
	bot.Register(bot.Telegram, New)
}

// SendFunc delivers one prepared Bot API call.
type SendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)

// Adapter implements bot.Adapter for Telegram.
type Adapter struct {
	gw   *bot.Gateway
	api  *tgbotapi.BotAPI
	send SendFunc
}

// New builds the adapter. Metadata: "token" (Bot API token; without it the
// adapter still parses updates but skips outbound sends), "trace".
func New(gw *bot.Gateway) (bot.Adapter, error) {

	a := &Adapter{gw: gw}

	token := gw.Option("token", "")
	if token == "" {
		gw.Log.Warn("telegram: no bot token; outbound sends disabled")
		return a, nil
	}

	trace, _ := strconv.ParseBool(gw.Option("trace", "false"))
	client := bot.TraceClient(nil, gw.Log, trace)

	var err error
	if client != nil {
		a.api, err = tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	} else {
		a.api, err = tgbotapi.NewBotAPI(token)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "telegram: setup")
	}
	a.send = a.api.Send
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

	var update tgbotapi.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return errors.WithMessage(bot.ErrBadPayload, "telegram: "+err.Error())
	}

	var (
		text string
		from *tgbotapi.User
	)
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil {
			return errors.WithMessage(bot.ErrBadPayload, "telegram: message chat missing")
		}
		c.UserID = strconv.FormatInt(msg.Chat.ID, 10)
		c.MessageID = strconv.Itoa(msg.MessageID)
		text = msg.Text
		from = msg.From
	case update.CallbackQuery != nil:
		cbq := update.CallbackQuery
		if cbq.Message == nil || cbq.Message.Chat == nil {
			return errors.WithMessage(bot.ErrBadPayload, "telegram: callback chat missing")
		}
		c.UserID = strconv.FormatInt(cbq.Message.Chat.ID, 10)
		c.MessageID = cbq.ID
		text = cbq.Data
		from = cbq.From
	default:
		return errors.WithMessage(bot.ErrBadPayload, "telegram: unsupported update")
	}

	c.SetCommand(strings.ToLower(strings.TrimSpace(text)), text)
	c.HasScreen = true
	if from != nil {
		c.UserMeta = map[string]any{
			"first_name": from.FirstName,
			"last_name":  from.LastName,
			"username":   from.UserName,
			"language":   from.LanguageCode,
		}
	}
	c.RequestObject = &update
	return nil
}

// Response fires the reply through the Bot API (best effort, logged on
// failure) and acknowledges the webhook with "ok".
func (a *Adapter) Response(c *bot.Controller) (any, error) {

	bot.CheckDeadline(c, timeLimit)

	chatID, err := strconv.ParseInt(c.UserID, 10, 64)
	if err != nil {
		return nil, errors.WithMessage(err, "telegram: chat id")
	}

	text := bot.Resize(c.Text, textLimit)
	if text != "" {
		msg := tgbotapi.NewMessage(chatID, text)
		if markup := newKeyboard(c.Buttons); markup != nil {
			msg.ReplyMarkup = markup
		}
		a.deliver(msg)
	}

	return "ok", nil
}

// deliver fires one Bot API call without awaiting the result.
func (a *Adapter) deliver(msg tgbotapi.Chattable) {
	send := a.send
	if send == nil {
		a.gw.Log.Warn("telegram: send skipped; no bot token")
		return
	}
	go func() {
		if _, err := send(msg); err != nil {
			a.gw.Log.Error("telegram: send",
				slog.Any("error", err),
			)
		}
	}()
}

// newKeyboard maps canonical buttons to a reply keyboard; buttons carrying
// a URL force an inline keyboard instead (reply keyboards cannot link).
func newKeyboard(buttons []bot.Button) any {
	if len(buttons) == 0 {
		return nil
	}

	inline := false
	for _, btn := range buttons {
		if btn.URL != "" {
			inline = true
			break
		}
	}

	if inline {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, btn := range buttons {
			if btn.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(btn.Title, btn.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Title, btn.Title))
			}
		}
		return tgbotapi.NewInlineKeyboardMarkup(row)
	}

	row := make([]tgbotapi.KeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		row = append(row, tgbotapi.NewKeyboardButton(btn.Title))
	}
	markup := tgbotapi.NewReplyKeyboard(row)
	markup.OneTimeKeyboard = true
	return markup
}
