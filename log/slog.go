// Package log builds the application's slog handlers.
package log

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	sfmt "github.com/samber/slog-formatter"
)

// ParseLevel maps a level name, optionally with a "+N"/"-N" offset
// (e.g. "DEBUG-2"), to its slog value.
func ParseLevel(s string) (v slog.Level, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("log: level string %q: %w", s, err)
		}
	}()

	name := s
	offset := 0
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		name = s[:i]
		offset, err = strconv.Atoi(s[i:])
		if err != nil {
			return // info, err
		}
	}
	switch strings.ToUpper(name) {
	case "TRACE":
		v = (slog.LevelDebug - 4)
	case "DEBUG":
		v = slog.LevelDebug
	case "INFO":
		v = slog.LevelInfo
	case "WARN":
		v = slog.LevelWarn
	case "ERROR":
		v = slog.LevelError
	case "FATAL":
		v = (slog.LevelError + 4)
	default:
		err = fmt.Errorf("unknown name")
		return // info, err
	}
	v += slog.Level(offset)
	return // v, nil
}

// Console returns a human-readable handler for output. Colors are enabled
// with OMNIBOT_LOG_COLOR=true and only when output is a terminal.
func Console(output *os.File, verbose slog.Level) slog.Handler {
	colorize, _ := strconv.ParseBool(
		os.Getenv("OMNIBOT_LOG_COLOR"),
	)
	if colorize {
		colorize = isatty.IsTerminal(
			output.Fd(),
		)
	}
	return sfmt.NewFormatterHandler(
		sfmt.ErrorFormatter("error"),
	)(
		tint.NewHandler(output, &tint.Options{
			AddSource:  false,
			Level:      verbose.Level(),
			TimeFormat: "Jan 02 15:04:05.000", // time.StampMilli,
			NoColor:    !colorize,
		}),
	)
}
