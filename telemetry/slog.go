package telemetry

import (
	"context"
	"io"
	"log/slog"
)

// SlogHandler bridges log/slog output to both a text console and this
// package's in-process Ring, the same dual-sink shape as the teacher's
// SlogHandler bridged console output to its OTLP queue.
type SlogHandler struct {
	textHandler slog.Handler
	ring        *Ring
	group       string
}

// NewSlogHandler creates a handler that writes text-formatted logs to w
// and also pushes INFO-and-above records onto ring (DEBUG is skipped to
// match the teacher's buffer-conserving policy).
func NewSlogHandler(w io.Writer, ring *Ring, opts *slog.HandlerOptions) *SlogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &SlogHandler{
		textHandler: slog.NewTextHandler(w, opts),
		ring:        ring,
	}
}

func (h *SlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.textHandler.Enabled(ctx, level)
}

func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.textHandler.Handle(ctx, r)
	if h.ring != nil && r.Level >= slog.LevelInfo {
		h.ring.Push(slogLevelToSeverity(r.Level), buildMessage(h.group, r))
	}
	return err
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SlogHandler{
		textHandler: h.textHandler.WithAttrs(attrs),
		ring:        h.ring,
		group:       h.group,
	}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}
	return &SlogHandler{
		textHandler: h.textHandler.WithGroup(name),
		ring:        h.ring,
		group:       newGroup,
	}
}

func slogLevelToSeverity(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarn
	case level >= slog.LevelInfo:
		return SeverityInfo
	default:
		return SeverityDebug
	}
}

// buildMessage builds a compact "group:msg key=val key2=val2" string for
// the ring, mirroring the teacher's fixed-format telemetry message build.
func buildMessage(group string, r slog.Record) string {
	msg := r.Message
	if group != "" {
		msg = group + ":" + msg
	}
	r.Attrs(func(a slog.Attr) bool {
		msg += " " + a.Key + "=" + a.Value.String()
		return true
	})
	return msg
}
