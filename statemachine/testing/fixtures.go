//nolint:gosec,mnd
package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/stretchr/testify/require"
)

// Turnstile is a coin-operated turnstile, the smallest useful fixture.
type Turnstile struct {
	Coins  int
	Passes int
}

// TurnstileDefinition returns the turnstile table: locked/unlocked, coin/push.
func TurnstileDefinition() *statemachine.Definition {
	return &statemachine.Definition{
		Name:         "turnstile",
		InitialState: "locked",
		States:       []string{"locked", "unlocked"},
		Events:       []string{"coin", "push"},
		Transitions: []statemachine.TransitionConfig{
			{From: "locked", Event: "coin", To: "unlocked", Action: "take_coin"},
			{From: "locked", Event: "push", Refuse: "insert a coin first"},
			{Name: "bonus_coin", From: "unlocked", Event: "coin", To: "unlocked", Action: "take_coin"},
			{From: "unlocked", Event: "push", To: "locked", Action: "pass"},
		},
	}
}

// TurnstileRegistry returns the guards and actions TurnstileDefinition uses.
func TurnstileRegistry() *statemachine.Registry[Turnstile] {
	return statemachine.NewRegistry[Turnstile]().
		RegisterAction("take_coin", func(_ context.Context, ts *Turnstile, _ any) error {
			ts.Coins++

			return nil
		}).
		RegisterAction("pass", func(_ context.Context, ts *Turnstile, _ any) error {
			ts.Passes++

			return nil
		})
}

// NewTurnstile builds a turnstile machine with logging silenced.
func NewTurnstile(t *testing.T) *statemachine.Machine[string, string, Turnstile] {
	t.Helper()

	m, err := statemachine.Build[string, string](TurnstileDefinition(), TurnstileRegistry(), Turnstile{})
	require.NoError(t, err)
	m.SetLogger(nil)

	return m
}

// WriteDefinition writes def as YAML into a temp dir and returns the path.
func WriteDefinition(t *testing.T, def *statemachine.Definition) string {
	t.Helper()

	data, err := def.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), def.Name+".yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}
