package statemachine

import (
	"context"
	"sync"

	"github.com/amp-labs/amp-statemachine/envutil"
	"github.com/amp-labs/amp-statemachine/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "statemachine"
	envSpanDebug = "STATEMACHINE_DEBUG"
)

// spanDebugEnabled is read from the environment on first use only.
var spanDebugEnabled = debugFlag(context.Background()) //nolint:gochecknoglobals

func debugFlag(ctx context.Context) func() bool {
	return sync.OnceValue(func() bool {
		return envutil.Bool(ctx, envSpanDebug).ValueOrElse(false)
	})
}

// startFireSpan creates the root span for one Fire call.
// Uses the global tracer provider installed by the telemetry package.
// The caller is responsible for calling span.End().
//
//nolint:spancheck
func startFireSpan(ctx context.Context, machine, machineID, state, event string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.fire")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("machine_id", machineID),
		attribute.String("event", event),
		attribute.String("from_state", state),
	)
	logSpanDebug(ctx, "started", "statemachine.fire", span)

	return ctx, span
}

// startActionSpan creates a child span around a single action.
// The caller is responsible for calling span.End().
//
//nolint:spancheck
func startActionSpan(ctx context.Context, rule, from, to, event string) (context.Context, trace.Span) {
	spanName := "action." + rule
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("rule", rule),
		attribute.String("event", event),
		attribute.String("from_state", from),
		attribute.String("to_state", to),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

func finishFireSpan(span trace.Span, to string, outcome Outcome, reason string, err error) {
	span.SetAttributes(
		attribute.String("to_state", to),
		attribute.String("outcome", outcome.String()),
	)

	if reason != "" {
		span.SetAttributes(attribute.String("reason", reason))
	}

	endSpan(span, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// logSpanDebug logs span creation when STATEMACHINE_DEBUG is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !spanDebugEnabled() {
		return
	}

	spanCtx := span.SpanContext()
	logger.Get(ctx).Info("otel span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}
