package bot

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/omnibot-dev/omnibot/nlu"
)

// Handler is the user-supplied reaction to a matched command.
type Handler func(c *Controller)

// Resolver maps a normalized utterance to a command name, "" when nothing
// matches. Installing one via SetResolver fully replaces the default
// registration-order scan.
type Resolver func(command string, list []*Command) string

// Slot is a single trigger: either a plain string or a compiled pattern.
// A compiled pattern always matches as a pattern, regardless of the owning
// command's IsPattern.
type Slot struct {
	Text    string
	Pattern *regexp.Regexp
}

// Command binds a trigger list to a handler.
type Command struct {
	Name      string
	Slots     []Slot
	IsPattern bool // plain-string slots are regexps, not substrings
	Handler   Handler
}

// Match reports whether command triggers this entry: any slot hit wins.
func (cmd *Command) Match(command string) bool {
	for _, slot := range cmd.Slots {
		switch {
		case slot.Pattern != nil:
			if slot.Pattern.MatchString(command) {
				return true
			}
		case cmd.IsPattern:
			if nlu.IsSayText([]string{slot.Text}, command, true) {
				return true
			}
		default:
			if slot.Text != "" && strings.Contains(command, slot.Text) {
				return true
			}
		}
	}
	return false
}

// Commands is the process-lifetime ordered trigger registry. Matching walks
// entries in registration order; the first hit wins. Re-registering a name
// overwrites the entry in place, keeping its original position.
type Commands struct {
	mu       sync.RWMutex
	log      *slog.Logger
	list     []*Command
	index    map[string]int
	resolver Resolver
}

// NewCommands returns an empty registry. A nil log falls back to
// slog.Default().
func NewCommands(log *slog.Logger) *Commands {
	if log == nil {
		log = slog.Default()
	}
	return &Commands{
		log:   log,
		index: make(map[string]int),
	}
}

// Add registers name with plain substring triggers.
func (t *Commands) Add(name string, slots []string, h Handler) {
	t.add(&Command{
		Name:    name,
		Slots:   textSlots(slots),
		Handler: h,
	})
}

// AddPattern registers name with regexp triggers. Risky patterns are logged
// as warnings; registration always succeeds.
func (t *Commands) AddPattern(name string, patterns []string, h Handler) {
	for _, expr := range patterns {
		if err := nlu.CheckPattern(expr); err != nil {
			t.log.Warn("command: unsafe trigger pattern",
				slog.String("command", name),
				slog.Any("error", err),
			)
		}
	}
	t.add(&Command{
		Name:      name,
		Slots:     textSlots(patterns),
		IsPattern: true,
		Handler:   h,
	})
}

// AddRegexp registers name with pre-compiled triggers.
func (t *Commands) AddRegexp(name string, patterns []*regexp.Regexp, h Handler) {
	slots := make([]Slot, 0, len(patterns))
	for _, re := range patterns {
		if err := nlu.CheckPattern(re.String()); err != nil {
			t.log.Warn("command: unsafe trigger pattern",
				slog.String("command", name),
				slog.Any("error", err),
			)
		}
		slots = append(slots, Slot{Text: re.String(), Pattern: re})
	}
	t.add(&Command{
		Name:    name,
		Slots:   slots,
		Handler: h,
	})
}

func textSlots(texts []string) []Slot {
	slots := make([]Slot, 0, len(texts))
	for _, s := range texts {
		slots = append(slots, Slot{Text: s})
	}
	return slots
}

func (t *Commands) add(cmd *Command) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// last write wins, original position kept
	if at, ok := t.index[cmd.Name]; ok {
		t.list[at] = cmd
		return
	}
	t.index[cmd.Name] = len(t.list)
	t.list = append(t.list, cmd)
}

// Remove deletes name; no-op when absent.
func (t *Commands) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	at, ok := t.index[name]
	if !ok {
		return
	}
	delete(t.index, name)
	t.list = append(t.list[:at], t.list[at+1:]...)
	for follow := at; follow < len(t.list); follow++ {
		t.index[t.list[follow].Name] = follow
	}
}

// Clear drops every entry.
func (t *Commands) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.list = nil
	t.index = make(map[string]int)
}

// Len reports the number of registered commands.
func (t *Commands) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.list)
}

// Get returns the entry registered under name, nil when absent.
func (t *Commands) Get(name string) *Command {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if at, ok := t.index[name]; ok {
		return t.list[at]
	}
	return nil
}

// SetResolver installs a custom resolution strategy. nil restores the
// default registration-order scan.
func (t *Commands) SetResolver(fn Resolver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolver = fn
}

// Resolve maps command to the name of the first matching entry, "" if none.
func (t *Commands) Resolve(command string) string {

	t.mu.RLock()
	resolve := t.resolver
	// snapshot: a racing Add may interleave, resolution only needs
	// eventual consistency of the table
	list := make([]*Command, len(t.list))
	copy(list, t.list)
	t.mu.RUnlock()

	if resolve == nil {
		resolve = ResolveDefault
	}
	return resolve(command, list)
}

// ResolveDefault is the built-in strategy: linear scan in registration
// order, first match wins.
func ResolveDefault(command string, list []*Command) string {
	for _, cmd := range list {
		if cmd.Match(command) {
			return cmd.Name
		}
	}
	return ""
}
