package alisa

// Request is the Yandex Dialogs webhook payload.
// https://yandex.ru/dev/dialogs/alice/doc/request.html
type Request struct {
	Meta    Meta       `json:"meta"`
	Session Session    `json:"session"`
	Request Message    `json:"request"`
	State   *State     `json:"state,omitempty"`
	Version string     `json:"version"`

	AccountLinking map[string]any `json:"account_linking_complete_event,omitempty"`
}

type Meta struct {
	Locale     string         `json:"locale"`
	Timezone   string         `json:"timezone"`
	ClientID   string         `json:"client_id"`
	Interfaces map[string]any `json:"interfaces"`
}

type Session struct {
	MessageID int    `json:"message_id"`
	SessionID string `json:"session_id"`
	SkillID   string `json:"skill_id"`
	// Deprecated top-level user id; still sent by the platform
	UserID      string       `json:"user_id,omitempty"`
	User        *User        `json:"user,omitempty"`
	Application *Application `json:"application,omitempty"`
	New         bool         `json:"new"`
}

type User struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token,omitempty"`
}

type Application struct {
	ApplicationID string `json:"application_id"`
}

type Message struct {
	Command           string         `json:"command"`
	OriginalUtterance string         `json:"original_utterance"`
	Type              string         `json:"type"` // SimpleUtterance | ButtonPressed
	Payload           map[string]any `json:"payload,omitempty"`
	NLU               *NLU           `json:"nlu,omitempty"`
}

type NLU struct {
	Tokens   []string `json:"tokens"`
	Entities []any    `json:"entities"`
}

// State carries the skill's persisted buckets back on every request.
type State struct {
	User        map[string]any `json:"user,omitempty"`
	Application map[string]any `json:"application,omitempty"`
	Session     map[string]any `json:"session,omitempty"`
}
