package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/amp-statemachine/logger"
)

// Logger receives structured notifications from a machine. Machine name and
// instance ID are already attached to ctx via logger.With when these run.
type Logger interface {
	EventAccepted(ctx context.Context, from, to, event string)
	EventRejected(ctx context.Context, state, event, reason string)
	ActionFailed(ctx context.Context, rule string, err error)
	TransitionExecuted(ctx context.Context, rule, from, to, event string)
}

// DefaultLogger writes through logger.Get(ctx).
type DefaultLogger struct{}

func (DefaultLogger) EventAccepted(ctx context.Context, from, to, event string) {
	logger.Get(ctx).Debug("event accepted", "event", event, "from_state", from, "to_state", to)
}

func (DefaultLogger) EventRejected(ctx context.Context, state, event, reason string) {
	logger.Get(ctx).Info("event rejected", "event", event, "state", state, "reason", reason)
}

func (DefaultLogger) ActionFailed(ctx context.Context, rule string, err error) {
	logger.Get(ctx).Error("action failed", "rule", rule, "error", err)
}

func (DefaultLogger) TransitionExecuted(ctx context.Context, rule, from, to, event string) {
	logger.Get(ctx).Debug("transition executed",
		"rule", rule, "event", event, "from_state", from, "to_state", to)
}

// SlogLogger writes to a fixed slog.Logger and ignores logger values carried
// in the context.
type SlogLogger struct {
	log *slog.Logger
}

func NewSlogLogger(log *slog.Logger) *SlogLogger {
	return &SlogLogger{log: log}
}

func (l *SlogLogger) EventAccepted(ctx context.Context, from, to, event string) {
	l.log.DebugContext(ctx, "event accepted", "event", event, "from_state", from, "to_state", to)
}

func (l *SlogLogger) EventRejected(ctx context.Context, state, event, reason string) {
	l.log.InfoContext(ctx, "event rejected", "event", event, "state", state, "reason", reason)
}

func (l *SlogLogger) ActionFailed(ctx context.Context, rule string, err error) {
	l.log.ErrorContext(ctx, "action failed", "rule", rule, "error", err)
}

func (l *SlogLogger) TransitionExecuted(ctx context.Context, rule, from, to, event string) {
	l.log.DebugContext(ctx, "transition executed",
		"rule", rule, "event", event, "from_state", from, "to_state", to)
}

type nopLogger struct{}

func (nopLogger) EventAccepted(context.Context, string, string, string)              {}
func (nopLogger) EventRejected(context.Context, string, string, string)              {}
func (nopLogger) ActionFailed(context.Context, string, error)                        {}
func (nopLogger) TransitionExecuted(context.Context, string, string, string, string) {}
