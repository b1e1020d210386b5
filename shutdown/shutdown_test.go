package shutdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests share package-level hook state and cannot run in parallel.
//
//nolint:paralleltest
func TestHooksRunInReverseOrder(t *testing.T) {
	hooks = nil

	var (
		mu    sync.Mutex
		order []string
	)

	record := func(name string) func(context.Context) {
		return func(ctx context.Context) {
			assert.NoError(t, ctx.Err())

			mu.Lock()
			defer mu.Unlock()

			order = append(order, name)
		}
	}

	BeforeShutdown("telemetry", record("telemetry"))
	BeforeShutdown("serial", record("serial"))

	RunHooks(t.Context())

	assert.Equal(t, []string{"serial", "telemetry"}, order)

	mut.Lock()
	assert.Nil(t, hooks)
	mut.Unlock()
}

//nolint:paralleltest
func TestShutdownCancelsContext(t *testing.T) {
	hooks = nil

	ran := make(chan struct{})

	BeforeShutdown("probe", func(context.Context) { close(ran) })

	ctx := SetupHandler(context.Background())

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled after Shutdown")
	}

	select {
	case <-ran:
	default:
		t.Fatal("hook did not run before cancellation")
	}
}

//nolint:paralleltest
func TestParentCancellationRunsHooks(t *testing.T) {
	hooks = nil

	ran := make(chan struct{})

	BeforeShutdown("probe", func(context.Context) { close(ran) })

	parent, cancel := context.WithCancel(context.Background())
	ctx := SetupHandler(parent)

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled")
	}

	_, open := <-ran
	require.False(t, open)
}

//nolint:paralleltest
func TestShutdownWithoutHandlerIsNoop(t *testing.T) {
	mut.Lock()
	channel = nil
	mut.Unlock()

	assert.NotPanics(t, Shutdown)
}
