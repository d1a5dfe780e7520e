package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TUILogHandler is a slog.Handler that forwards records to a Bubble Tea
// program so log output does not tear the review screen. Records below
// the configured level are dropped.
type TUILogHandler struct {
	target sender
	level  slog.Leveler
	prefix string // attrs already rendered by WithAttrs
	group  string
}

// NewTUILogHandler creates a handler that sends slogMsg to target.
func NewTUILogHandler(target sender, level slog.Leveler) *TUILogHandler {
	return &TUILogHandler{target: target, level: level}
}

// Enabled implements slog.Handler.
func (h *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *TUILogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})

	h.target.Send(slogMsg{level: r.Level, message: b.String()})
	return nil
}

// WithAttrs implements slog.Handler.
func (h *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&b, h.group, a)
	}
	c := *h
	c.prefix = b.String()
	return &c
}

// WithGroup implements slog.Handler.
func (h *TUILogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = qualify(h.group, name)
	return &c
}

// writeAttr appends " key=value", flattening groups into dotted keys.
func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		g := group
		if a.Key != "" {
			g = qualify(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, g, ga)
		}
		return
	}

	v := a.Value.String()
	if strings.ContainsAny(v, " \t\"=") || v == "" {
		v = fmt.Sprintf("%q", v)
	}
	fmt.Fprintf(b, " %s=%s", qualify(group, a.Key), v)
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}
