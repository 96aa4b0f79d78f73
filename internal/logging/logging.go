package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Handler writes one colored line per record: time, level, message, attrs.
type Handler struct {
	mu    *sync.Mutex
	l     *log.Logger
	level slog.Leveler
	attrs []slog.Attr
	group string
}

func NewHandler(out io.Writer, level slog.Leveler) *Handler {
	return &Handler{
		mu:    &sync.Mutex{},
		l:     log.New(out, "", 0),
		level: level,
	}
}

// New returns a logger backed by Handler.
func New(out io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(NewHandler(out, level))
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.HiBlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	var b strings.Builder
	for _, a := range h.attrs {
		h.writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.l.Println(
		r.Time.Format("15:04:05.000"),
		level,
		r.Message,
		strings.TrimSpace(b.String()),
	)
	return nil
}

func (h *Handler) writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	b.WriteString(color.GreenString(key))
	b.WriteByte('=')
	b.WriteString(fmt.Sprint(a.Value.Resolve().Any()))
	b.WriteByte(' ')
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}
