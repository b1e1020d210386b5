//nolint:err113 // Test file uses errors.New() for creating test errors
package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, h slog.Handler, msg string, attrs ...slog.Attr) {
	t.Helper()

	record := slog.NewRecord(time.Now(), slog.LevelError, msg, 0)
	record.AddAttrs(attrs...)
	require.NoError(t, h.Handle(context.Background(), record))
}

func jsonRecord(t *testing.T, msg string, attrs ...slog.Attr) map[string]any {
	t.Helper()

	var buf bytes.Buffer

	handle(t, &errorAttrHandler{inner: slog.NewJSONHandler(&buf, nil)}, msg, attrs...)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	return out
}

func TestAnnotateErrorNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, AnnotateError(nil, "state", "idle"))
}

func TestAnnotateErrorKeepsIdentity(t *testing.T) {
	t.Parallel()

	base := errors.New("guard exploded")
	annotated := AnnotateError(base, "state", "has_money", "event", "select_product")

	require.Error(t, annotated)
	assert.Equal(t, "guard exploded", annotated.Error())
	require.ErrorIs(t, annotated, base)
	assert.Equal(t, base, errors.Unwrap(annotated))

	attrs := ErrorAttrs(annotated)
	require.Len(t, attrs, 2)
	assert.Equal(t, "state", attrs[0].Key)
	assert.Equal(t, "has_money", attrs[0].Value.String())
	assert.Equal(t, "event", attrs[1].Key)
}

func TestAnnotateErrorValueKinds(t *testing.T) {
	t.Parallel()

	err := AnnotateError(errors.New("boom"),
		"depth", 3,
		"terminal", true,
		"elapsed", time.Second,
		slog.String("machine", "workflow"))

	attrs := ErrorAttrs(err)
	require.Len(t, attrs, 4)
	assert.Equal(t, slog.KindInt64, attrs[0].Value.Kind())
	assert.Equal(t, slog.KindBool, attrs[1].Value.Kind())
	assert.Equal(t, slog.KindDuration, attrs[2].Value.Kind())
	assert.Equal(t, "workflow", attrs[3].Value.String())
}

func TestErrorAttrsThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := AnnotateError(errors.New("dispense failed"), "product", "Chips")
	wrapped := fmt.Errorf("firing dispense: %w", inner)

	attrs := ErrorAttrs(wrapped)
	require.Len(t, attrs, 1)
	assert.Equal(t, "product", attrs[0].Key)
}

func TestErrorAttrHandlerPlainRecord(t *testing.T) {
	t.Parallel()

	out := jsonRecord(t, "transition refused", slog.String("state", "idle"))

	assert.Equal(t, "transition refused", out["msg"])
	assert.Equal(t, "idle", out["state"])
}

func TestErrorAttrHandlerUnfoldsAnnotations(t *testing.T) {
	t.Parallel()

	err := AnnotateError(
		AnnotateError(errors.New("action failed"), "action", "publish"),
		"machine", "workflow")

	out := jsonRecord(t, "fire failed",
		slog.Any("error", err),
		slog.String("state", "approved"))

	assert.Equal(t, "action failed", out["error"])
	assert.Equal(t, "approved", out["state"])
	assert.Equal(t, "workflow", out["machine"])
	assert.Equal(t, "publish", out["action"])
}

func TestErrorAttrHandlerEnabled(t *testing.T) {
	t.Parallel()

	h := &errorAttrHandler{inner: slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})}

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestErrorAttrHandlerWithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := &errorAttrHandler{inner: slog.NewJSONHandler(&buf, nil)}

	withAttrs := base.WithAttrs([]slog.Attr{slog.String("machine", "vending")})
	require.IsType(t, &errorAttrHandler{}, withAttrs)

	grouped := withAttrs.WithGroup("fire")
	require.IsType(t, &errorAttrHandler{}, grouped)

	err := AnnotateError(errors.New("guard failed"), "guard", "can_purchase")
	handle(t, grouped, "fire failed", slog.Any("error", err))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "vending", out["machine"])

	group, ok := out["fire"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "guard failed", group["error"])
	assert.Equal(t, "can_purchase", group["guard"])
}
