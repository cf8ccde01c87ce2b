package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates a SlogAdapter that logs at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter logging at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	c := *a
	c.level = level
	return &c
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("endpoint", event.Endpoint),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Location != "" {
		attrs = append(attrs, slog.String("location", event.Location))
	}

	switch {
	case event.Exchange != nil:
		ex := event.Exchange
		attrs = append(attrs,
			slog.String("method", ex.Method.String()),
			slog.String("uri", ex.URI),
			slog.Int("size", ex.Size),
		)
		if ex.Code != nil {
			attrs = append(attrs, slog.String("code", ex.Code.String()))
		}
		if ex.ContentFormat.IsSet() {
			attrs = append(attrs, slog.String("format", ex.ContentFormat.String()))
		}
		if ex.Accept.IsSet() {
			attrs = append(attrs, slog.String("accept", ex.Accept.String()))
		}
		if ex.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", ex.Duration))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.String("error_code", event.Error.Code.String()))
		}
	}

	a.logger.LogAttrs(context.Background(), a.level, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
