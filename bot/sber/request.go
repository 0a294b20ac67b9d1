package sber

// Message names of the SmartApp protocol.
const (
	MessageToSkill = "MESSAGE_TO_SKILL"
	ServerAction   = "SERVER_ACTION"
	RatingResult   = "RATING_RESULT"
	RunApp         = "RUN_APP"
	CloseApp       = "CLOSE_APP"

	AnswerToUser = "ANSWER_TO_USER"
	CallRating   = "CALL_RATING"
)

// Request is the SmartApp webhook payload.
type Request struct {
	MessageName string  `json:"messageName"`
	SessionID   string  `json:"sessionId"`
	MessageID   int64   `json:"messageId"`
	UUID        UUID    `json:"uuid"`
	Payload     Payload `json:"payload"`
}

// UUID identifies the user across devices and channels.
type UUID struct {
	UserID      string `json:"userId"`
	Sub         string `json:"sub,omitempty"`
	UserChannel string `json:"userChannel,omitempty"`
}

type Payload struct {
	AppInfo    map[string]any `json:"app_info,omitempty"`
	Device     *Device        `json:"device,omitempty"`
	Character  *Character     `json:"character,omitempty"`
	Message    *TextMessage   `json:"message,omitempty"`
	Action     *Action        `json:"server_action,omitempty"`
	Rating     *Rating        `json:"rating,omitempty"`
	Intent     string         `json:"intent,omitempty"`
	NewSession bool           `json:"new_session,omitempty"`
}

type Device struct {
	PlatformType string         `json:"platformType,omitempty"`
	Surface      string         `json:"surface,omitempty"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// Character is the assistant persona talking to the user; Appeal tells
// the skill whether to address the user formally.
type Character struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
	Appeal string `json:"appeal,omitempty"` // official | no_official
}

type TextMessage struct {
	OriginalText   string `json:"original_text"`
	NormalizedText string `json:"normalized_text,omitempty"`
	AsrNormalized  string `json:"asr_normalized_message,omitempty"`
}

type Action struct {
	ActionID   string         `json:"action_id"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type Rating struct {
	Estimation int `json:"estimation"`
}
