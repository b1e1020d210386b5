package envutil

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringOverride(t *testing.T) {
	t.Parallel()

	ctx := WithEnvOverride(t.Context(), "STATEDEMO_TEST_STRING", "vending")

	val, err := String(ctx, "STATEDEMO_TEST_STRING").Value()
	require.NoError(t, err)
	assert.Equal(t, "vending", val)
}

func TestMissingValue(t *testing.T) {
	t.Parallel()

	rdr := String(t.Context(), "STATEDEMO_TEST_DEFINITELY_UNSET")
	assert.False(t, rdr.HasValue())

	_, err := rdr.Value()
	require.ErrorIs(t, err, ErrEnvVarMissing)
	assert.Equal(t, "STATEDEMO_TEST_DEFINITELY_UNSET=<not set>", rdr.String())
}

func TestDefault(t *testing.T) {
	t.Parallel()

	val := Bool(t.Context(), "STATEDEMO_TEST_UNSET_BOOL", Default(true)).ValueOrElse(false)
	assert.True(t, val)
}

func TestTypedReaders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = WithEnvOverride(ctx, "B", " true ")
	ctx = WithEnvOverride(ctx, "I", "42")
	ctx = WithEnvOverride(ctx, "D", "1500ms")
	ctx = WithEnvOverride(ctx, "L", "WARN")

	b, err := Bool(ctx, "B").Value()
	require.NoError(t, err)
	assert.True(t, b)

	i, err := Int(ctx, "I").Value()
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	d, err := Duration(ctx, "D").Value()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	l, err := SlogLevel(ctx, "L").Value()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

func TestBadValue(t *testing.T) {
	t.Parallel()

	ctx := WithEnvOverride(t.Context(), "I", "forty-two")

	rdr := Int(ctx, "I", Default(7))
	assert.True(t, rdr.HasError())
	assert.Equal(t, 7, rdr.ValueOrElse(7))

	_, err := rdr.Value()
	require.ErrorIs(t, err, ErrBadEnvVar)
}

func TestOneOf(t *testing.T) {
	t.Parallel()

	ctx := WithEnvOverride(t.Context(), "MODE", "interactive")

	val, err := String(ctx, "MODE", OneOf("script", "interactive")).Value()
	require.NoError(t, err)
	assert.Equal(t, "interactive", val)

	ctx = WithEnvOverride(t.Context(), "MODE", "batch")

	_, err = String(ctx, "MODE", OneOf("script", "interactive")).Value()
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestIfMissing(t *testing.T) {
	t.Parallel()

	_, err := String(t.Context(), "STATEDEMO_TEST_UNSET", IfMissing[string](ErrNotAllowed)).Value()
	require.ErrorIs(t, err, ErrNotAllowed)
}
