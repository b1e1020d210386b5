// Package shutdown wires SIGINT/SIGTERM to context cancellation and runs
// registered cleanup hooks (telemetry flush, serial queues) before exit.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// hookTimeout bounds how long all hooks together may take.
const hookTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func(ctx context.Context)
}

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []hook         //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a named hook. Hooks run in reverse registration
// order, like deferred calls, while the top-level context is still alive.
func BeforeShutdown(name string, fn func(ctx context.Context)) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, hook{name: name, fn: fn})
}

// Shutdown triggers the shutdown sequence programmatically. It is a no-op
// when SetupHandler has not been called.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch == nil {
		return
	}

	select {
	case ch <- os.Interrupt:
	default:
	}
}

// SetupHandler installs the signal handler and returns a context that is
// canceled once a signal arrives and all hooks have run.
func SetupHandler(parent context.Context) context.Context {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		var sig os.Signal

		select {
		case sig = <-ch:
			slog.Warn("Received " + sig.String() + ", shutting down...")
		case <-parent.Done():
		}

		signal.Stop(ch)

		mut.Lock()
		channel = nil
		mut.Unlock()

		RunHooks(ctx)
		cancel()
	}()

	return ctx
}

// RunHooks runs and clears every registered hook. Exposed for programs that
// exit normally and want the same cleanup without a signal.
func RunHooks(ctx context.Context) {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	for i := len(pending) - 1; i >= 0; i-- {
		slog.Debug("Running shutdown hook", "hook", pending[i].name)
		pending[i].fn(hookCtx)
	}
}
