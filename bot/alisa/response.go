package alisa

import "github.com/omnibot-dev/omnibot/bot"

// Response is the Yandex Dialogs webhook reply envelope.
// https://yandex.ru/dev/dialogs/alice/doc/response.html
type Response struct {
	Response *Body `json:"response"`

	UserStateUpdate  map[string]any `json:"user_state_update,omitempty"`
	ApplicationState map[string]any `json:"application_state,omitempty"`
	SessionState     map[string]any `json:"session_state,omitempty"`

	StartAccountLinking map[string]any `json:"start_account_linking,omitempty"`

	Version string `json:"version"`
}

type Body struct {
	Text       string   `json:"text"`
	TTS        string   `json:"tts,omitempty"`
	EndSession bool     `json:"end_session"`
	Card       *Card    `json:"card,omitempty"`
	Buttons    []Button `json:"buttons,omitempty"`
}

type Button struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Hide    bool   `json:"hide"`
}

// Card is either one BigImage or an ItemsList gallery.
type Card struct {
	Type        string     `json:"type"` // BigImage | ItemsList
	ImageID     string     `json:"image_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Header      *CardText  `json:"header,omitempty"`
	Items       []CardItem `json:"items,omitempty"`
}

type CardText struct {
	Text string `json:"text"`
}

type CardItem struct {
	ImageID     string  `json:"image_id,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Button      *Button `json:"button,omitempty"`
}

// newCard translates the canonical card into the platform shape.
func newCard(card *bot.Card) *Card {
	if card == nil {
		return nil
	}

	if len(card.Images) == 1 {
		img := card.Images[0]
		return &Card{
			Type:        "BigImage",
			ImageID:     img.ImageID,
			Title:       img.Title,
			Description: img.Description,
		}
	}

	out := &Card{Type: "ItemsList"}
	if card.Title != "" {
		out.Header = &CardText{Text: card.Title}
	}
	for _, img := range card.Images {
		item := CardItem{
			ImageID:     img.ImageID,
			Title:       img.Title,
			Description: img.Description,
		}
		if img.Button != nil {
			item.Button = &Button{
				Title:   img.Button.Title,
				URL:     img.Button.URL,
				Payload: img.Button.Payload,
				Hide:    img.Button.Hide,
			}
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func newButtons(buttons []bot.Button) []Button {
	if len(buttons) == 0 {
		return nil
	}
	out := make([]Button, 0, len(buttons))
	for _, btn := range buttons {
		out = append(out, Button{
			Title:   btn.Title,
			URL:     btn.URL,
			Payload: btn.Payload,
			Hide:    btn.Hide,
		})
	}
	return out
}
