package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes that change over the process lifetime,
// such as the open project or the active session kind.
type ContextProvider func() []slog.Attr

// SessionContext builds a ContextProvider from a getter of the current
// project name and session kind. Empty values are left out.
func SessionContext(current func() (project, session string)) ContextProvider {
	return func() []slog.Attr {
		project, session := current()
		attrs := make([]slog.Attr, 0, 2)
		if project != "" {
			attrs = append(attrs, slog.String("project", project))
		}
		if session != "" {
			attrs = append(attrs, slog.String("session", session))
		}
		return attrs
	}
}

// ContextHandler injects the provider's attributes into every record.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r.AddAttrs(attrs...)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.inner.WithAttrs(attrs), h.provider)
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return NewContextHandler(h.inner.WithGroup(name), h.provider)
}
