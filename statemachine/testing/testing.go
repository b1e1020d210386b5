// Package testing provides test helpers for state machines: a recorder that
// traces every fire, matchers over the trace, and scenario runners.
//
//nolint:varnamelen
package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/stretchr/testify/require"
)

// Recorder wraps a Machine and traces every event fired through it.
type Recorder[S, E comparable, C any] struct {
	*statemachine.Machine[S, E, C]

	t           *testing.T
	trace       []TraceEntry[S, E]
	transitions []statemachine.Transition[S, E]
	assertions  []Assertion
}

// TraceEntry records one Fire call.
type TraceEntry[S, E comparable] struct {
	Timestamp time.Time
	Event     E
	Payload   any
	Result    statemachine.Result[S, E]
	Duration  time.Duration
	Error     error
}

// Assertion records the outcome of one Assert* call.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// NewRecorder starts tracing m. Transitions are captured with a listener, so
// on-entry follow-ups show up individually.
func NewRecorder[S, E comparable, C any](t *testing.T, m *statemachine.Machine[S, E, C]) *Recorder[S, E, C] {
	t.Helper()

	r := &Recorder[S, E, C]{Machine: m, t: t}

	m.OnTransition(func(_ context.Context, tr statemachine.Transition[S, E]) {
		r.transitions = append(r.transitions, tr)
	})

	return r
}

// Fire fires event and records the outcome. It never fails the test itself.
func (r *Recorder[S, E, C]) Fire(ctx context.Context, event E, payload any) (statemachine.Result[S, E], error) {
	start := time.Now()
	res, err := r.Machine.Fire(ctx, event, payload)

	r.trace = append(r.trace, TraceEntry[S, E]{
		Timestamp: start,
		Event:     event,
		Payload:   payload,
		Result:    res,
		Duration:  time.Since(start),
		Error:     err,
	})

	return res, err
}

// MustAccept fires event and fails the test unless it is accepted.
func (r *Recorder[S, E, C]) MustAccept(event E, payload any) statemachine.Result[S, E] {
	r.t.Helper()

	res, err := r.Fire(r.t.Context(), event, payload)
	require.NoError(r.t, err, "fire %v", event)
	require.True(r.t, res.Accepted(), "event %v should be accepted in %v, got %q", event, res.From, res.Reason)

	return res
}

// MustReject fires event and fails the test unless it is rejected with reason.
// An empty reason accepts any rejection.
func (r *Recorder[S, E, C]) MustReject(event E, payload any, reason string) statemachine.Result[S, E] {
	r.t.Helper()

	res, err := r.Fire(r.t.Context(), event, payload)
	require.NoError(r.t, err, "fire %v", event)
	require.True(r.t, res.Rejected(), "event %v should be rejected in %v", event, res.From)

	if reason != "" {
		require.Equal(r.t, reason, res.Reason)
	}

	return res
}

func (r *Recorder[S, E, C]) record(name string, err error) {
	r.assertions = append(r.assertions, Assertion{Name: name, Passed: err == nil, Error: err})
}

// AssertState checks the current state.
func (r *Recorder[S, E, C]) AssertState(expected S) {
	r.t.Helper()

	actual := r.CurrentState()

	var err error
	if actual != expected {
		err = fmt.Errorf("%w: expected '%v', got '%v'", ErrUnexpectedState, expected, actual)
	}

	r.record(fmt.Sprintf("state is '%v'", expected), err)
	require.Equal(r.t, expected, actual, "current state")
}

// AssertStateVisited checks that some committed transition entered state.
func (r *Recorder[S, E, C]) AssertStateVisited(state S) {
	r.t.Helper()

	ok, err := StateWasVisited[S, E, C](state).Match(r)
	r.record(fmt.Sprintf("state '%v' was visited", state), err)
	require.True(r.t, ok, "state '%v' should have been visited", state)
}

// AssertTransitionTaken checks that a committed transition went from -> to.
func (r *Recorder[S, E, C]) AssertTransitionTaken(from, to S) {
	r.t.Helper()

	ok, err := TransitionWasTaken[S, E, C](from, to).Match(r)
	r.record(fmt.Sprintf("transition '%v' -> '%v' was taken", from, to), err)
	require.True(r.t, ok, "transition from '%v' to '%v' should have been taken", from, to)
}

// AssertMatches runs matchers against the recorder.
func (r *Recorder[S, E, C]) AssertMatches(matchers ...Matcher[S, E, C]) {
	r.t.Helper()

	for _, m := range matchers {
		ok, err := m.Match(r)
		r.record(m.Description(), err)
		require.True(r.t, ok, "%s: %v", m.Description(), err)
	}
}

// AssertContext checks the machine context with a predicate.
func (r *Recorder[S, E, C]) AssertContext(description string, check func(C) bool) {
	r.t.Helper()

	r.AssertMatches(ContextSatisfies[S, E](description, check))
}

// Trace returns every recorded Fire call.
func (r *Recorder[S, E, C]) Trace() []TraceEntry[S, E] {
	return r.trace
}

// Transitions returns every committed transition seen since recording began.
func (r *Recorder[S, E, C]) Transitions() []statemachine.Transition[S, E] {
	return r.transitions
}

func (r *Recorder[S, E, C]) Assertions() []Assertion {
	return r.assertions
}
