package bot

import "github.com/pkg/errors"

var (
	// ErrBadPayload marks an empty, unparseable or structurally invalid
	// webhook body. Transports map it to 400.
	ErrBadPayload = errors.New("bot: malformed request payload")

	// ErrNoRoute means no command matched and no fallback handler is
	// installed. Transports map it to 404 "notFound".
	ErrNoRoute = errors.New("bot: no route")
)
