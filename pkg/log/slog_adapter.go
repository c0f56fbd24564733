package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes handshake events to an slog.Logger.
// Useful for development when you want to see negotiation progress in the
// console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("role", event.Role),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Record != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("record_type", int(event.Record.RecordType)),
			slog.Int("size", event.Record.Size),
		)
		if event.Record.Message != "" {
			attrs = append(attrs, slog.String("message", event.Record.Message))
		}
	case event.State != nil:
		attrs = append(attrs,
			slog.String("from", event.State.From),
			slog.String("to", event.State.To),
		)
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Alert != 0 {
			attrs = append(attrs, slog.Int("alert", int(event.Error.Alert)))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "handshake", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
