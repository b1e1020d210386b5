// Command statedemo walks a vending machine and a document workflow through
// their transition tables, narrating every accepted and refused event.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/envutil"
	"github.com/amp-labs/amp-statemachine/logger"
	"github.com/amp-labs/amp-statemachine/shutdown"
	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/amp-labs/amp-statemachine/telemetry"
)

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	if err := setupObservability(ctx); err != nil {
		logger.Fatal("failed to set up observability", "error", err)
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	statemachine.SetDefinitionLoader(definitions.Loader())

	if err := newDemo(cfg, os.Stdout).run(ctx); err != nil {
		shutdown.RunHooks(ctx)
		logger.Fatal("demo failed", "error", err)
	}

	shutdown.RunHooks(ctx)
}

// setupObservability configures logging, then telemetry, then logging again
// so that records are also exported once the OTLP log bridge exists.
func setupObservability(ctx context.Context) error {
	var opts []logger.Option

	// Narration owns stdout unless LOG_OUTPUT says otherwise.
	if !envutil.String(ctx, "LOG_OUTPUT").HasValue() {
		opts = append(opts, logger.WithOutput(os.Stderr))
	}

	if _, err := logger.ConfigureLogging(ctx, appName, opts...); err != nil {
		return err
	}

	telCfg, err := telemetry.LoadConfigFromEnv(ctx, envutil.String(ctx, "ENV", envutil.Default("local")).ValueOrElse("local"))
	if err != nil {
		return fmt.Errorf("failed to load telemetry config: %w", err)
	}

	tel, err := telemetry.Initialize(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	shutdown.BeforeShutdown("telemetry", func(ctx context.Context) {
		if err := tel.Shutdown(ctx); err != nil {
			logger.Get(ctx).Error("failed to shut down telemetry", "error", err)
		}
	})

	if h := tel.LogHandler(); h != nil {
		if _, err := logger.ConfigureLogging(ctx, appName, append(opts, logger.WithExtraHandler(h))...); err != nil {
			return err
		}
	}

	return nil
}

type demo struct {
	cfg *config
	out io.Writer
}

func newDemo(cfg *config, out io.Writer) *demo {
	return &demo{cfg: cfg, out: out}
}

func (d *demo) run(ctx context.Context) error {
	if d.cfg.runs(definitions.Vending) {
		if err := d.vending(ctx); err != nil {
			return err
		}
	}

	if d.cfg.runs(definitions.Workflow) {
		if err := d.workflow(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (d *demo) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}

func (d *demo) print(s string) {
	_, _ = io.WriteString(d.out, s)
}
