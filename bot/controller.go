package bot

import (
	"time"
	"unicode/utf8"
)

// Type is a platform code name.
type Type string

// Well-known platforms.
const (
	Auto     Type = "" // detect by headers/body
	Alisa    Type = "alisa"
	Marusia  Type = "marusia"
	VK       Type = "vk"
	Telegram Type = "telegram"
	Viber    Type = "viber"
	Sber     Type = "sber"
)

// Button is a quick-reply or link button, translated by the adapter
// into the platform's own keyboard shape.
type Button struct {
	Title   string
	URL     string
	Payload any
	Hide    bool // suggest (hide after tap) vs. persistent
}

// CardImage is a single gallery item.
type CardImage struct {
	ImageID     string
	Title       string
	Description string
	Button      *Button
}

// Card is a rich response element: one big image or an item gallery.
type Card struct {
	Title       string
	Description string
	Images      []CardImage
}

// Sound is a named audio insert for voice platforms.
type Sound struct {
	Key    string
	Sounds []string
}

// NLU carries platform-provided utterance analysis, when any.
type NLU struct {
	Tokens   []string
	Entities []any
}

// Controller is the canonical per-request state: what the platform sent,
// normalized, and what the skill wants to answer. Exactly one adapter
// populates it, exactly one handler mutates it, the same adapter then
// serializes it back. Never reused across requests.
type Controller struct {
	// Identity & input
	UserID          string
	Command         string // normalized (trimmed, lower-cased) utterance
	OriginalCommand string // utterance verbatim
	MessageID       string
	Platform        Type
	AuthToken       string
	HasScreen       bool
	UserMeta        map[string]any
	NLU             NLU
	RequestObject   any // raw parsed payload, for handler introspection

	// Conversation context
	IntentName    *string // intent matched this turn
	OldIntentName *string // intent matched previous turn (from state)
	UserData      map[string]any

	// Output
	Text          string
	TTS           string
	EndSession    bool
	Buttons       []Button
	Card          *Card
	Sounds        []Sound
	RequestRating bool
	Emotion       string

	// State returned inline to the platform (local-storage platforms)
	State       map[string]any
	StateBucket string

	// StartedAt anchors the per-platform response-time budget;
	// set by the engine right before Init.
	StartedAt time.Time

	instant any    // adapter-precomputed reply (liveness probes etc.)
	warning string // advisory, e.g. deadline exceeded
}

// SetCommand stores the normalized and verbatim utterance; an empty
// normalized command falls back to the verbatim one.
func (c *Controller) SetCommand(command, original string) {
	if command == "" {
		command = original
	}
	c.Command = command
	c.OriginalCommand = original
}

// SetIntent records the intent matched this turn.
func (c *Controller) SetIntent(name string) {
	c.IntentName = &name
}

// AddButton appends a quick-reply button.
func (c *Controller) AddButton(btn Button) {
	c.Buttons = append(c.Buttons, btn)
}

// AddSound appends a named audio insert.
func (c *Controller) AddSound(key string, sounds ...string) {
	c.Sounds = append(c.Sounds, Sound{Key: key, Sounds: sounds})
}

// SetInstantReply stores an already-computed response; the engine returns
// it as-is, skipping state load, handler and persistence.
func (c *Controller) SetInstantReply(v any) {
	c.instant = v
}

// InstantReply returns the precomputed response, if any.
func (c *Controller) InstantReply() any {
	return c.instant
}

// Warn records an advisory error; the response is still returned.
func (c *Controller) Warn(msg string) {
	c.warning = msg
}

// Warning returns the advisory error recorded for this request, "" if none.
func (c *Controller) Warning() string {
	return c.warning
}

// Reset clears the per-request accumulators. The engine calls it on every
// exit path so nothing leaks into a reused instance.
func (c *Controller) Reset() {
	c.Buttons = nil
	c.Card = nil
	c.Sounds = nil
	c.NLU = NLU{}
	c.instant = nil
}

// CheckDeadline records an advisory warning on c when the wall time since
// StartedAt exceeds the platform's response budget.
func CheckDeadline(c *Controller, budget time.Duration) {
	if budget <= 0 || c.StartedAt.IsZero() {
		return
	}
	if elapsed := time.Since(c.StartedAt); elapsed > budget {
		c.Warn(string(c.Platform) + ": response time " +
			elapsed.Round(time.Millisecond).String() +
			" exceeded " + budget.String() + " budget")
	}
}

// Resize truncates text to at most max characters (runes). When truncation
// happens and max allows it, the result ends with "..." and is exactly
// max characters long.
func Resize(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max < 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
