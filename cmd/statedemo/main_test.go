package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/envutil"
	"github.com/amp-labs/amp-statemachine/logger"
	"github.com/amp-labs/amp-statemachine/shutdown"
	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, modeScript, cfg.Mode)
	assert.Equal(t, machineAll, cfg.Machine)
	assert.False(t, cfg.Diagram)
	assert.True(t, cfg.runs(definitions.Vending))
	assert.True(t, cfg.runs(definitions.Workflow))

	ctx := envutil.WithEnvOverride(t.Context(), "DEMO_MACHINE", "vending")
	ctx = envutil.WithEnvOverride(ctx, "DEMO_DIAGRAM", "true")

	cfg, err = loadConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Diagram)
	assert.True(t, cfg.runs(definitions.Vending))
	assert.False(t, cfg.runs(definitions.Workflow))

	_, err = loadConfig(envutil.WithEnvOverride(t.Context(), "DEMO_MODE", "karaoke"))
	require.ErrorIs(t, err, envutil.ErrNotAllowed)
}

//nolint:paralleltest // Installs the process-wide definition loader and shutdown hooks.
func TestScriptedDemo(t *testing.T) {
	statemachine.SetDefinitionLoader(definitions.Loader())
	t.Cleanup(func() {
		statemachine.SetDefinitionLoader(nil)
		shutdown.RunHooks(context.Background())
	})

	var out bytes.Buffer

	ctx := logger.WithMuted(t.Context(), true)
	cfg := &config{Mode: modeScript, Machine: machineAll, Diagram: true}

	require.NoError(t, newDemo(cfg, &out).run(ctx))

	text := out.String()

	for _, want := range []string{
		"Vending Machine",
		"❌ Select Product refused in Idle: please insert money first",
		"💰 Balance: $1.50",
		"✅ Select Product: Has Money -> Dispensing -> Idle",
		"🎁 Enjoy your Coke! Change: $0.00",
		"insufficient funds: need $2.00, have $0.50",
		"🎁 Enjoy your Chips! Change: $0.50",
		"💵 Returned $5.00",
		"Coke: $1.50 (stock: 9)",
		"Chips: $2.00 (stock: 11)",
		"Document Workflow",
		"📄 New document created by Chetan Soni",
		"❌ Edit refused in Pending Review: cannot edit - document is under review",
		"❌ Edit refused in Published: cannot edit published document",
		"✅ Reject: Pending Review -> Rejected",
		"✅ Edit: Rejected -> Draft",
		"❌ Publish refused in Draft: cannot publish - document not approved",
		"Queue drained, document is Published",
		"```mermaid",
		"stateDiagram-v2",
	} {
		assert.Contains(t, text, want)
	}
}
