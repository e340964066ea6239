package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// cliHandler renders log records as short, human-readable lines on
// stderr: "warn: message key=value ...". DEBUG level additionally
// prefixes the record with a timestamp, since debug output is the one
// case where "when did this happen" matters to the reader.
type cliHandler struct {
	level slog.Level
	out   io.Writer
	attrs []slog.Attr
}

// NewCLIHandler returns a slog.Handler tuned for interactive terminal use.
func NewCLIHandler(level slog.Level) slog.Handler {
	return &cliHandler{level: level, out: os.Stderr}
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *cliHandler) Handle(_ context.Context, r slog.Record) error {
	var prefix string
	switch r.Level {
	case slog.LevelDebug:
		prefix = fmt.Sprintf("[%s] debug:", r.Time.Format("15:04:05.000"))
	case slog.LevelInfo:
		prefix = "info:"
	case slog.LevelWarn:
		prefix = "warn:"
	case slog.LevelError:
		prefix = "error:"
	default:
		prefix = r.Level.String() + ":"
	}

	line := fmt.Sprintf("%s %s", prefix, r.Message)
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
		return true
	})
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Attributes bound via the logger's With() are kept on a copy of the
	// handler and printed ahead of each record's own attributes.
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &nh
}

func (h *cliHandler) WithGroup(name string) slog.Handler {
	return h
}
