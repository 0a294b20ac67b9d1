package bot

import "log/slog"

// Middleware runs before the command handler. A link that does not call
// next() stops the chain; the handler never runs. A panicking link is
// logged and treated as if it had called next() — "continue" semantics,
// so one broken middleware cannot take the whole webhook down.
type Middleware func(c *Controller, next func())

// runChain executes chain in order, then final.
func runChain(log *slog.Logger, c *Controller, chain []Middleware, final func()) {

	var run func(i int)
	run = func(i int) {
		if i >= len(chain) {
			final()
			return
		}

		called := false
		next := func() {
			if called {
				return // once
			}
			called = true
			run(i + 1)
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("middleware: recovered",
						slog.Int("link", i),
						slog.Any("panic", r),
					)
					next() // continue
				}
			}()
			chain[i](c, next)
		}()
	}

	run(0)
}
