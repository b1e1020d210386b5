package testing

import (
	"testing"

	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Step is one event in a scenario. Zero-valued expectations are not checked.
type Step[S, E comparable] struct {
	Event   E
	Payload any
	Outcome statemachine.Outcome
	Reason  string
	State   S
}

// Accept builds a step that must be accepted and end in state.
func Accept[S, E comparable](event E, payload any, state S) Step[S, E] {
	return Step[S, E]{Event: event, Payload: payload, Outcome: statemachine.Accepted, State: state}
}

// Reject builds a step that must be rejected with reason.
func Reject[S, E comparable](event E, payload any, reason string) Step[S, E] {
	return Step[S, E]{Event: event, Payload: payload, Outcome: statemachine.Rejected, Reason: reason}
}

// Scenario is a named sequence of steps against a fresh machine.
type Scenario[S, E comparable, C any] struct {
	Name     string
	Steps    []Step[S, E]
	Matchers []Matcher[S, E, C]
}

// RunScenario builds a machine with newMachine and plays the scenario as a
// subtest. Each step checks its outcome, reason and resulting state.
func RunScenario[S, E comparable, C any](
	t *testing.T,
	newMachine func(t *testing.T) *statemachine.Machine[S, E, C],
	scenario Scenario[S, E, C],
) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		rec := NewRecorder(t, newMachine(t))

		var zero S

		for i, step := range scenario.Steps {
			res, err := rec.Fire(t.Context(), step.Event, step.Payload)

			if step.Outcome == statemachine.Failed || step.Outcome == statemachine.PartiallyFailed {
				require.Error(t, err, "step %d (%v)", i, step.Event)
			} else {
				require.NoError(t, err, "step %d (%v)", i, step.Event)
			}

			if step.Outcome != 0 {
				assert.Equal(t, step.Outcome, res.Outcome, "step %d (%v): %s", i, step.Event, res.Reason)
			}

			if step.Reason != "" {
				assert.Equal(t, step.Reason, res.Reason, "step %d (%v)", i, step.Event)
			}

			if step.State != zero {
				assert.Equal(t, step.State, rec.CurrentState(), "step %d (%v)", i, step.Event)
			}
		}

		rec.AssertMatches(scenario.Matchers...)
	})
}
