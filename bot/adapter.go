// Package bot is the dispatch core: it classifies an incoming webhook
// payload into one of the supported platforms, hands it to that platform's
// adapter to populate a canonical Controller, resolves and runs the matched
// command handler exactly once, and asks the same adapter to serialize the
// mutated Controller back into the platform's response envelope.
package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/omnibot-dev/omnibot/store"
)

// Adapter translates one platform's webhook payload to and from the
// canonical Controller.
type Adapter interface {
	// String is the platform code name.
	String() string
	// Init parses raw and populates c. A malformed or unrecognized
	// payload returns ErrBadPayload (wrapped). Liveness probes are
	// answered by storing an instant reply on c.
	Init(raw []byte, c *Controller) error
	// Response builds the outbound envelope from c. Exceeding the
	// platform's time budget records an advisory warning on c, never
	// an error.
	Response(c *Controller) (any, error)
}

// LocalStorage is the optional capability of platforms that round-trip
// user state inline within the request/response cycle, or through a
// platform-provided remote store, so the engine skips its own persistence.
type LocalStorage interface {
	LocalStorageEnabled() bool
	LocalStorage(ctx context.Context, c *Controller) (map[string]any, error)
	SetLocalStorage(ctx context.Context, c *Controller, data map[string]any) error
}

// RatingResponder is the optional capability of platforms with a distinct
// "ask for rating" response shape.
type RatingResponder interface {
	RatingResponse(c *Controller) (any, error)
}

// Gateway carries everything a platform adapter needs from its engine:
// a logger, the platform credentials/options and, for adapters that keep
// state in a remote key-value store, a persistence handle.
type Gateway struct {
	Log   *slog.Logger
	Meta  map[string]string
	Users store.Users
}

// Option looks up a Meta key, with a default.
func (gw *Gateway) Option(key, def string) string {
	if v, ok := gw.Meta[key]; ok {
		return v
	}
	return def
}

// NewAdapter is a platform adapter factory.
type NewAdapter func(gw *Gateway) (Adapter, error)

var (
	adapterMx sync.RWMutex
	adapters  = make(map[Type]NewAdapter)
)

// Register adds a platform adapter factory. Platform packages call it
// from init().
func Register(tag Type, factory NewAdapter) {

	if tag == Auto {
		panic("bot: register adapter tag is missing")
	}
	if factory == nil {
		panic("bot: register <nil> adapter factory")
	}

	adapterMx.Lock()
	defer adapterMx.Unlock()

	if _, ok := adapters[tag]; ok {
		panic("bot: duplicate " + string(tag) + " adapter register")
	}
	adapters[tag] = factory
}

// GetAdapter returns the factory registered for tag, nil if unknown.
func GetAdapter(tag Type) NewAdapter {
	adapterMx.RLock()
	defer adapterMx.RUnlock()
	return adapters[tag]
}
