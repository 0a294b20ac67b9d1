package viber

import "github.com/omnibot-dev/omnibot/bot"

// Keyboard is the Viber rich keyboard attachment.
// https://developers.viber.com/docs/tools/keyboards/
type Keyboard struct {
	Type          string   `json:"Type"` // "keyboard"
	DefaultHeight bool     `json:"DefaultHeight,omitempty"`
	Buttons       []Button `json:"Buttons"`
}

type Button struct {
	Columns    int    `json:"Columns,omitempty"`
	Rows       int    `json:"Rows,omitempty"`
	ActionType string `json:"ActionType"` // reply | open-url
	ActionBody string `json:"ActionBody"`
	Text       string `json:"Text"`
	TextSize   string `json:"TextSize,omitempty"`
}

func newKeyboard(buttons []bot.Button) *Keyboard {
	if len(buttons) == 0 {
		return nil
	}

	kbd := &Keyboard{Type: "keyboard"}
	for _, btn := range buttons {
		action, body := "reply", btn.Title
		if btn.URL != "" {
			action, body = "open-url", btn.URL
		}
		kbd.Buttons = append(kbd.Buttons, Button{
			ActionType: action,
			ActionBody: body,
			Text:       btn.Title,
			TextSize:   "regular",
		})
	}
	return kbd
}
