package sber

import "github.com/omnibot-dev/omnibot/bot"

// Response is the SmartApp reply envelope.
type Response struct {
	MessageName string          `json:"messageName"` // ANSWER_TO_USER | CALL_RATING
	SessionID   string          `json:"sessionId"`
	MessageID   int64           `json:"messageId"`
	UUID        UUID            `json:"uuid"`
	Payload     ResponsePayload `json:"payload"`
}

type ResponsePayload struct {
	PronounceText string         `json:"pronounceText,omitempty"`
	Emotion       *Emotion       `json:"emotion,omitempty"`
	Items         []Item         `json:"items,omitempty"`
	Suggestions   *Suggestions   `json:"suggestions,omitempty"`
	Device        *Device        `json:"device,omitempty"`
	Intent        string         `json:"intent,omitempty"`
	Finished      bool           `json:"finished"`
}

type Emotion struct {
	EmotionID string `json:"emotionId"`
}

// Item is one response element: a text bubble, a card, or a close command.
type Item struct {
	Bubble  *Bubble        `json:"bubble,omitempty"`
	Card    map[string]any `json:"card,omitempty"`
	Command *Command       `json:"command,omitempty"`
}

type Bubble struct {
	Text string `json:"text"`
}

type Command struct {
	Type string `json:"type"` // close_app
}

type Suggestions struct {
	Buttons []SuggestButton `json:"buttons"`
}

type SuggestButton struct {
	Title  string  `json:"title"`
	Action *SbAction `json:"action,omitempty"`
}

type SbAction struct {
	Type string `json:"type"` // text | deep_link
	Text string `json:"text,omitempty"`
	Link string `json:"deep_link,omitempty"`
}

func newSuggestions(buttons []bot.Button) *Suggestions {
	if len(buttons) == 0 {
		return nil
	}
	out := &Suggestions{}
	for _, btn := range buttons {
		sb := SuggestButton{Title: btn.Title}
		if btn.URL != "" {
			sb.Action = &SbAction{Type: "deep_link", Link: btn.URL}
		} else {
			sb.Action = &SbAction{Type: "text", Text: btn.Title}
		}
		out.Buttons = append(out.Buttons, sb)
	}
	return out
}

// newCard renders the canonical card as a gallery card item.
func newCard(card *bot.Card) map[string]any {
	if card == nil {
		return nil
	}
	items := make([]map[string]any, 0, len(card.Images))
	for _, img := range card.Images {
		items = append(items, map[string]any{
			"type": "media_gallery_item",
			"image": map[string]any{
				"url": img.ImageID,
			},
			"top_text": map[string]any{
				"text": img.Title,
				"typeface": "caption",
			},
			"bottom_text": map[string]any{
				"text": img.Description,
				"typeface": "body3",
			},
		})
	}
	return map[string]any{
		"type":  "gallery_card",
		"items": items,
	}
}
