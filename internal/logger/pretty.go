package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// PrettyHandler renders each record as one colored line:
//
//	[time] LEVEL message key=value ...
//
// Groups flatten into dotted key prefixes. Handler-level attributes are
// rendered once, when attached, and replayed on every line.
type PrettyHandler struct {
	level  slog.Level
	prefix string // dotted group path applied to subsequent keys
	attrs  []byte // pre-rendered handler attributes

	mu *sync.Mutex // shared across clones, guards w
	w  io.Writer
}

// NewPrettyHandler builds a PrettyHandler writing records at or above
// level to w.
func NewPrettyHandler(w io.Writer, level slog.Level) *PrettyHandler {
	return &PrettyHandler{level: level, mu: new(sync.Mutex), w: w}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = append(buf, ansiGray...)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, time.DateTime)
	buf = append(buf, ']')
	buf = append(buf, ansiReset...)
	buf = append(buf, ' ')

	buf = append(buf, levelStyle(r.Level)...)
	buf = append(buf, ansiBold...)
	lvl := r.Level.String()
	buf = append(buf, lvl...)
	for i := len(lvl); i < 5; i++ {
		buf = append(buf, ' ')
	}
	buf = append(buf, ansiReset...)
	buf = append(buf, ' ')

	buf = append(buf, r.Message...)

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		buf = append(buf, ' ')
		buf = append(buf, ansiCyan...)
		buf = append(buf, h.attrs...)
		sep := len(h.attrs) > 0
		r.Attrs(func(a slog.Attr) bool {
			if sep {
				buf = append(buf, ' ')
			}
			sep = true
			buf = appendAttr(buf, h.prefix, a)
			return true
		})
		buf = append(buf, ansiReset...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		if len(h2.attrs) > 0 {
			h2.attrs = append(h2.attrs, ' ')
		}
		h2.attrs = appendAttr(h2.attrs, h2.prefix, a)
	}
	return h2
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	if h2.prefix != "" {
		h2.prefix += "."
	}
	h2.prefix += name
	return h2
}

func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{
		level:  h.level,
		prefix: h.prefix,
		attrs:  append([]byte(nil), h.attrs...),
		mu:     h.mu,
		w:      h.w,
	}
}

func levelStyle(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiBlue
	default:
		return ansiGray
	}
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			if p != "" {
				p += "."
			}
			p += a.Key
		}
		for i, ga := range v.Group() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendAttr(buf, p, ga)
		}
		return buf
	}

	if prefix != "" {
		buf = append(buf, prefix...)
		buf = append(buf, '.')
	}
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	if v.Kind() == slog.KindString {
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"") {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, s...)
	}
	return append(buf, v.String()...)
}
