package bot

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/omnibot-dev/omnibot/nlu"
	"github.com/omnibot-dev/omnibot/store"
)

// storeWriteTimeout bounds the detached persistence write.
const storeWriteTimeout = 5 * time.Second

// intentKey is the reserved field carrying the previous turn's intent
// inside the persisted user-data blob.
const intentKey = "_intent"

// Engine is one independent dispatch context: it owns a command table,
// a logger, platform adapters with their credentials and a persistence
// handle. There is no process-wide singleton; multiple engines coexist
// for multi-tenant setups and test isolation.
type Engine struct {
	log      *slog.Logger
	commands *Commands
	store    store.Users
	platform Type // explicit platform; Auto = detect per request
	fallback Handler

	onStoreError func(error)

	adapterMx sync.Mutex
	adapters  map[Type]Adapter
	meta      map[Type]map[string]string

	middleware []Middleware
	platformMW map[Type][]Middleware

	writes sync.WaitGroup // in-flight fire-and-forget store writes
}

// EngineOption configures a new Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithStore sets the per-user state persistence.
func WithStore(users store.Users) EngineOption {
	return func(e *Engine) { e.store = users }
}

// WithPlatform pins the engine to one platform, disabling detection.
// Required for marusia, whose payloads are structurally identical to alisa.
func WithPlatform(tag Type) EngineOption {
	return func(e *Engine) { e.platform = tag }
}

// WithPlatformMeta supplies a platform's credentials and options
// (tokens, confirmation codes, trace flags).
func WithPlatformMeta(tag Type, meta map[string]string) EngineOption {
	return func(e *Engine) { e.meta[tag] = meta }
}

// WithFallback installs the handler run when no command matches.
func WithFallback(h Handler) EngineOption {
	return func(e *Engine) { e.fallback = h }
}

// WithStoreErrorHook overrides where fire-and-forget persistence failures
// are delivered. The default logs them.
func WithStoreErrorHook(hook func(error)) EngineOption {
	return func(e *Engine) { e.onStoreError = hook }
}

// NewEngine builds a dispatch context.
func NewEngine(opts ...EngineOption) *Engine {

	e := &Engine{
		adapters:   make(map[Type]Adapter),
		meta:       make(map[Type]map[string]string),
		platformMW: make(map[Type][]Middleware),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.commands == nil {
		e.commands = NewCommands(e.log)
	}
	if e.onStoreError == nil {
		e.onStoreError = func(err error) {
			e.log.Error("store: write failed",
				slog.Any("error", err),
			)
		}
	}
	return e
}

// Commands exposes the engine's command table.
func (e *Engine) Commands() *Commands {
	return e.commands
}

// Use appends global middleware, run on every request before the handler.
func (e *Engine) Use(mw ...Middleware) {
	e.middleware = append(e.middleware, mw...)
}

// UseFor appends middleware run only for one platform, after the global
// chain.
func (e *Engine) UseFor(tag Type, mw ...Middleware) {
	e.platformMW[tag] = append(e.platformMW[tag], mw...)
}

// Adapter returns the engine's adapter instance for tag, constructing it
// on first use from the registered factory.
func (e *Engine) Adapter(tag Type) (Adapter, error) {

	e.adapterMx.Lock()
	defer e.adapterMx.Unlock()

	if ad, ok := e.adapters[tag]; ok {
		return ad, nil
	}

	factory := GetAdapter(tag)
	if factory == nil {
		return nil, errors.Errorf("bot: platform %q not supported", tag)
	}

	gw := &Gateway{
		Log:   e.log.With(slog.String("adapter", string(tag))),
		Meta:  e.meta[tag],
		Users: e.store,
	}
	if gw.Meta == nil {
		gw.Meta = make(map[string]string)
	}

	ad, err := factory(gw)
	if err != nil {
		return nil, errors.WithMessage(err, string(tag)+": setup")
	}
	e.adapters[tag] = ad
	return ad, nil
}

// Run processes one webhook request end to end:
// detect platform, adapter Init, state load, middleware + handler
// (exactly once), response build, fire-and-forget persistence.
// The result is the platform-shaped response body.
func (e *Engine) Run(ctx context.Context, raw []byte, hdr http.Header) (any, error) {
	return e.RunAs(ctx, e.platform, raw, hdr)
}

// RunAs is Run with the platform pinned per request, e.g. from the webhook
// route. Auto falls back to the engine's configured platform or detection.
func (e *Engine) RunAs(ctx context.Context, tag Type, raw []byte, hdr http.Header) (any, error) {

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.WithMessage(ErrBadPayload, "empty body")
	}

	if tag == Auto {
		tag = e.platform
	}
	if tag == Auto {
		var ok bool
		if tag, ok = Detect(hdr, raw); !ok {
			tag = Alisa
			e.log.Warn("dispatch: platform not recognized; using default",
				slog.String("platform", string(tag)),
			)
		}
	}

	log := e.log.With(
		slog.String("rid", uuid.NewString()),
		slog.String("platform", string(tag)),
	)

	adapter, err := e.Adapter(tag)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		Platform:  tag,
		StartedAt: time.Now(),
	}
	defer c.Reset()

	if err = adapter.Init(raw, c); err != nil {
		return nil, errors.WithMessage(err, string(tag)+": init")
	}

	// Liveness probes and webhook confirmations reply straight from Init;
	// writing state for them would pollute the store with health checks.
	if reply := c.InstantReply(); reply != nil {
		return reply, nil
	}

	ls, _ := adapter.(LocalStorage)
	local := ls != nil && ls.LocalStorageEnabled()
	key := e.storeKey(c)

	switch {
	case local:
		data, err := ls.LocalStorage(ctx, c)
		if err != nil {
			log.Warn("state: load", slog.Any("error", err))
		}
		restoreState(c, data)
	case e.store != nil && key != "":
		user, err := e.store.Get(ctx, key)
		if err != nil {
			log.Warn("state: load", slog.Any("error", err))
		} else if user != nil {
			c.UserData = user.Data
			if user.Intent != "" && c.OldIntentName == nil {
				intent := user.Intent
				c.OldIntentName = &intent
			}
		}
	}

	var runErr error
	final := func() {
		var h Handler
		if name := e.commands.Resolve(c.Command); name != "" {
			c.SetIntent(name)
			if cmd := e.commands.Get(name); cmd != nil {
				h = cmd.Handler
			}
		}
		if h == nil {
			h = e.fallback
		}
		if h == nil {
			runErr = ErrNoRoute
			return
		}
		h(c)
	}

	chain := make([]Middleware, 0, len(e.middleware)+len(e.platformMW[tag]))
	chain = append(chain, e.middleware...)
	chain = append(chain, e.platformMW[tag]...)
	runChain(log, c, chain, final)

	if runErr != nil {
		return nil, runErr
	}

	// Local-storage platforms carry state inline in the envelope,
	// so the write has to land before the response is built.
	if local {
		if err = ls.SetLocalStorage(ctx, c, persistState(c)); err != nil {
			log.Warn("state: save", slog.Any("error", err))
		}
	}

	var out any
	if rr, ok := adapter.(RatingResponder); ok && c.RequestRating {
		out, err = rr.RatingResponse(c)
	} else {
		out, err = adapter.Response(c)
	}
	if err != nil {
		return nil, errors.WithMessage(err, string(tag)+": response")
	}

	if warn := c.Warning(); warn != "" {
		log.Warn("dispatch: advisory", slog.String("warning", warn))
	}

	if !local && e.store != nil && key != "" {
		e.persist(key, c)
	}

	return out, nil
}

// persist schedules a detached upsert of the user's state. The write is
// deliberately not awaited: best effort, at-most-once, failures delivered
// to the OnStoreError hook. A crash in between loses one turn of state.
func (e *Engine) persist(key string, c *Controller) {

	user := &store.User{
		ID:        key,
		Data:      c.UserData,
		UpdatedAt: time.Now(),
	}
	if c.IntentName != nil {
		user.Intent = *c.IntentName
	}

	e.writes.Add(1)
	go func() {
		defer e.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		if err := e.store.Put(ctx, user); err != nil {
			e.onStoreError(err)
		}
	}()
}

// storeKey picks the persistence lookup key: the auth-token identity
// takes precedence over the raw platform user id.
func (e *Engine) storeKey(c *Controller) string {
	id := c.UserID
	if c.AuthToken != "" {
		id = c.AuthToken
	}
	if id == "" {
		return ""
	}
	return string(c.Platform) + ":" + id
}

// restoreState unpacks a local-storage blob into the controller,
// peeling off the reserved intent field.
func restoreState(c *Controller, data map[string]any) {
	if data == nil {
		return
	}
	if name, ok := data[intentKey].(string); ok {
		if c.OldIntentName == nil {
			c.OldIntentName = &name
		}
		delete(data, intentKey)
	}
	c.UserData = data
}

// persistState packs the controller's user data for the platform's state
// channel, recording this turn's intent for the next one (or dropping the
// record when no intent matched).
func persistState(c *Controller) map[string]any {
	data := make(map[string]any, len(c.UserData)+1)
	for k, v := range c.UserData {
		data[k] = v
	}
	delete(data, intentKey)
	if c.IntentName != nil {
		data[intentKey] = *c.IntentName
	}
	return data
}

// Wait blocks until all detached persistence writes have finished.
func (e *Engine) Wait() {
	e.writes.Wait()
}

// Close drains detached writes, clears the command table and the compiled
// pattern cache, and closes the persistence handle.
func (e *Engine) Close() error {
	e.writes.Wait()
	e.commands.Clear()
	nlu.ResetCache()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
