package statemachine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lightState string

type lightEvent string

const (
	off     lightState = "off"
	on      lightState = "on"
	broken  lightState = "broken"
	flip    lightEvent = "flip"
	dim     lightEvent = "dim"
	smash   lightEvent = "smash"
	restore lightEvent = "restore"
)

type lamp struct {
	Flips int
	Log   []string
}

func cloneLamp(l lamp) lamp {
	l.Log = slices.Clone(l.Log)

	return l
}

func appendLog(entry string) Action[lamp] {
	return func(_ context.Context, l *lamp, _ any) error {
		l.Log = append(l.Log, entry)

		return nil
	}
}

func countFlip(_ context.Context, l *lamp, _ any) error {
	l.Flips++

	return nil
}

func newLamp(t *testing.T) *Machine[lightState, lightEvent, lamp] {
	t.Helper()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetName("lamp-" + t.Name())
	m.SetCloner(cloneLamp)
	m.SetLogger(NewSlogLogger(slogt.New(t)))

	require.NoError(t, m.Configure(off, flip, nil, countFlip, on))
	require.NoError(t, m.Configure(on, flip, nil, countFlip, off))
	require.NoError(t, m.Configure(on, dim, nil, appendLog("dimmed"), on))
	require.NoError(t, m.Configure(off, smash, nil, nil, broken))
	require.NoError(t, m.Refuse(broken, flip, "lamp is broken"))

	return m
}

func TestFireAccepted(t *testing.T) {
	t.Parallel()

	m := newLamp(t)

	res, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.False(t, res.Rejected())
	assert.NoError(t, res.Err())
	assert.Equal(t, off, res.From)
	assert.Equal(t, on, res.To)
	assert.Equal(t, []lightState{off, on}, res.Path)
	assert.Equal(t, on, m.CurrentState())
	assert.Equal(t, 1, m.Context().Flips)
}

func TestFireSelfTransition(t *testing.T) {
	t.Parallel()

	m := newLamp(t)
	_, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)

	res, err := m.Fire(t.Context(), dim, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, on, res.To)
	assert.Equal(t, []string{"dimmed"}, m.Context().Log)
	assert.Len(t, m.History(), 2)
}

func TestFireNoTransition(t *testing.T) {
	t.Parallel()

	m := newLamp(t)

	res, err := m.Fire(t.Context(), dim, nil)
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Equal(t, ReasonNoTransition, res.Reason)
	assert.Equal(t, off, res.To)
	assert.Equal(t, off, m.CurrentState())
	assert.Equal(t, lamp{}, m.Context())
	assert.Empty(t, m.History())

	err = res.Err()
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), ReasonNoTransition)
}

func TestFireGuardRejects(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{Flips: 3})
	m.SetLogger(nil)

	tooMany := func(_ context.Context, l *lamp, _ any) (bool, string) {
		if l.Flips >= 3 {
			return false, fmt.Sprintf("flipped %d times already", l.Flips)
		}

		return true, ""
	}
	require.NoError(t, m.Configure(off, flip, tooMany, countFlip, on))

	res, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Equal(t, "flipped 3 times already", res.Reason)
	assert.Equal(t, off, m.CurrentState())
	assert.Equal(t, 3, m.Context().Flips)
}

func TestGuardWithoutReason(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)
	require.NoError(t, m.Configure(off, flip, func(context.Context, *lamp, any) (bool, string) {
		return false, ""
	}, nil, on))

	ok, reason := m.CanFire(t.Context(), flip, nil)
	assert.False(t, ok)
	assert.Equal(t, "guard rejected flip", reason)
}

func TestRefusal(t *testing.T) {
	t.Parallel()

	m := newLamp(t)
	_, err := m.Fire(t.Context(), smash, nil)
	require.NoError(t, err)

	res, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Equal(t, "lamp is broken", res.Reason)
	assert.Equal(t, broken, m.CurrentState())

	err = m.Refuse(broken, dim, "")
	require.ErrorIs(t, err, ErrEmptyReason)
}

func TestConfigureDuplicate(t *testing.T) {
	t.Parallel()

	m := newLamp(t)

	err := m.Configure(off, flip, nil, nil, broken)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDuplicateRule)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, off, cfgErr.From)
	assert.Equal(t, flip, cfgErr.Event)

	res, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	assert.Equal(t, on, res.To, "first rule must stay intact")
}

func TestOnEntryChain(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)
	m.SetCloner(cloneLamp)

	require.NoError(t, m.Configure(off, smash, nil, appendLog("smashed"), broken))
	require.NoError(t, m.Configure(broken, restore, nil, appendLog("restored"), off))
	require.NoError(t, m.OnEntry(broken, restore))

	res, err := m.Fire(t.Context(), smash, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, off, res.From)
	assert.Equal(t, off, res.To)
	assert.Equal(t, []lightState{off, broken, off}, res.Path)
	assert.Equal(t, []string{"smashed", "restored"}, m.Context().Log)

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, smash, history[0].Event)
	assert.Equal(t, restore, history[1].Event)

	err = m.OnEntry(broken, flip)
	require.ErrorIs(t, err, ErrDuplicateOnEntry)
}

func TestOnEntryNotFiredOnSelfTransition(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](on, lamp{})
	m.SetLogger(nil)

	require.NoError(t, m.Configure(on, dim, nil, nil, on))
	require.NoError(t, m.Configure(on, flip, nil, nil, off))
	require.NoError(t, m.OnEntry(on, flip))

	res, err := m.Fire(t.Context(), dim, nil)
	require.NoError(t, err)
	assert.Equal(t, on, res.To)
	assert.Equal(t, []lightState{on, on}, res.Path)
}

func TestOnEntryFollowUpRejected(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)

	require.NoError(t, m.Configure(off, flip, nil, nil, on))
	require.NoError(t, m.OnEntry(on, smash))

	res, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, on, res.To)
}

func TestChainTooDeep(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)
	m.SetMaxChainDepth(3)

	require.NoError(t, m.Configure(off, flip, nil, countFlip, on))
	require.NoError(t, m.Configure(on, flip, nil, countFlip, off))
	require.NoError(t, m.OnEntry(on, flip))
	require.NoError(t, m.OnEntry(off, flip))

	res, err := m.Fire(t.Context(), flip, nil)
	require.ErrorIs(t, err, ErrChainTooDeep)
	assert.Equal(t, PartiallyFailed, res.Outcome)
	assert.Len(t, res.Path, 5)
	assert.Equal(t, 4, m.Context().Flips)
	assert.Equal(t, m.CurrentState(), res.To)
}

func TestActionFailureRollsBack(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	m := New[lightState, lightEvent, lamp](off, lamp{Log: []string{"start"}})
	m.SetCloner(cloneLamp)
	m.SetLogger(NewSlogLogger(slogt.New(t)))

	require.NoError(t, m.Configure(off, flip, nil, Sequence(
		countFlip,
		appendLog("half-done"),
		func(context.Context, *lamp, any) error { return boom },
	), on))

	res, err := m.Fire(t.Context(), flip, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrActionFailed)
	require.ErrorIs(t, err, boom)

	var afe *ActionFailedError
	require.ErrorAs(t, err, &afe)
	assert.Equal(t, "off_flip", afe.Rule)

	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, off, res.To)
	assert.Equal(t, off, m.CurrentState())
	assert.Equal(t, lamp{Log: []string{"start"}}, m.Context())
	assert.Empty(t, m.History())
	require.ErrorIs(t, res.Err(), ErrActionFailed)
}

func TestActionPanicRecovered(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)

	require.NoError(t, m.Configure(off, flip, nil, func(_ context.Context, l *lamp, _ any) error {
		l.Flips = 99
		panic("bulb exploded")
	}, on))

	_, err := m.Fire(t.Context(), flip, nil)
	require.ErrorIs(t, err, ErrActionFailed)
	require.ErrorIs(t, err, ErrActionPanic)
	assert.Contains(t, err.Error(), "bulb exploded")
	assert.Equal(t, off, m.CurrentState())
	assert.Equal(t, 0, m.Context().Flips)
}

func TestFollowUpFailureKeepsCommittedStep(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)

	require.NoError(t, m.Configure(off, flip, nil, countFlip, on))
	require.NoError(t, m.Configure(on, smash, nil, func(context.Context, *lamp, any) error {
		return errors.New("glass too thick")
	}, broken))
	require.NoError(t, m.OnEntry(on, smash))

	res, err := m.Fire(t.Context(), flip, nil)
	require.ErrorIs(t, err, ErrActionFailed)
	assert.Equal(t, PartiallyFailed, res.Outcome)
	assert.False(t, res.Accepted())
	require.ErrorIs(t, res.Err(), ErrFollowUpFailed)
	assert.Equal(t, on, res.To)
	assert.Equal(t, []lightState{off, on}, res.Path)
	assert.Equal(t, on, m.CurrentState())
	assert.Equal(t, 1, m.Context().Flips)
}

func TestPayloadReachesGuardAndAction(t *testing.T) {
	t.Parallel()

	m := New[lightState, lightEvent, lamp](off, lamp{})
	m.SetLogger(nil)

	onlyStrings := func(_ context.Context, _ *lamp, payload any) (bool, string) {
		if _, ok := payload.(string); !ok {
			return false, "payload must be a string"
		}

		return true, ""
	}

	record := func(_ context.Context, l *lamp, payload any) error {
		s, _ := payload.(string)
		l.Log = append(l.Log, s)

		return nil
	}

	require.NoError(t, m.Configure(off, flip, onlyStrings, record, on))

	res, err := m.Fire(t.Context(), flip, 42)
	require.NoError(t, err)
	assert.Equal(t, "payload must be a string", res.Reason)

	res, err = m.Fire(t.Context(), flip, "hello")
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, []string{"hello"}, m.Context().Log)
}

func TestQueries(t *testing.T) {
	t.Parallel()

	m := newLamp(t)

	ok, reason := m.CanFire(t.Context(), flip, nil)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = m.CanFire(t.Context(), dim, nil)
	assert.False(t, ok)
	assert.Equal(t, ReasonNoTransition, reason)

	assert.Equal(t, []lightEvent{flip, smash}, m.PermittedEvents(t.Context(), nil))
	assert.False(t, m.IsTerminal(off))
	assert.True(t, m.IsTerminal(broken))

	rules := m.Rules()
	require.Len(t, rules, 5)
	assert.Equal(t, "off_flip", rules[0].Name)
	assert.True(t, rules[4].IsRefusal())
	assert.Equal(t, "lamp is broken", rules[4].Refusal())

	assert.NotEmpty(t, m.ID())
	assert.Equal(t, off, m.InitialState())
}

func TestContextIsACopy(t *testing.T) {
	t.Parallel()

	m := newLamp(t)
	_, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	_, err = m.Fire(t.Context(), dim, nil)
	require.NoError(t, err)

	snapshot := m.Context()
	snapshot.Log[0] = "tampered"
	snapshot.Flips = 100

	assert.Equal(t, []string{"dimmed"}, m.Context().Log)
	assert.Equal(t, 1, m.Context().Flips)
}

func TestHistoryLimit(t *testing.T) {
	t.Parallel()

	m := newLamp(t)
	m.SetHistoryLimit(2)

	for range 5 {
		_, err := m.Fire(t.Context(), flip, nil)
		require.NoError(t, err)
	}

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, on, history[0].From)
	assert.Equal(t, off, history[1].From)

	m.SetHistoryLimit(0)
	assert.Empty(t, m.History())
}

func TestListeners(t *testing.T) {
	t.Parallel()

	m := newLamp(t)

	var seen []Transition[lightState, lightEvent]

	m.OnTransition(func(_ context.Context, tr Transition[lightState, lightEvent]) {
		seen = append(seen, tr)
	})

	_, err := m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)
	_, err = m.Fire(t.Context(), smash, nil)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, off, seen[0].From)
	assert.Equal(t, on, seen[0].To)
	assert.Equal(t, flip, seen[0].Event)
	assert.False(t, seen[0].At.IsZero())
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "partially_failed", PartiallyFailed.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}

type recordingLogger struct {
	rejected []string
	failed   []string
	executed []string
}

func (r *recordingLogger) EventAccepted(context.Context, string, string, string) {}

func (r *recordingLogger) EventRejected(_ context.Context, state, event, reason string) {
	r.rejected = append(r.rejected, state+"/"+event+": "+reason)
}

func (r *recordingLogger) ActionFailed(_ context.Context, rule string, _ error) {
	r.failed = append(r.failed, rule)
}

func (r *recordingLogger) TransitionExecuted(_ context.Context, rule, _, _, _ string) {
	r.executed = append(r.executed, rule)
}

func TestLoggerHooks(t *testing.T) {
	t.Parallel()

	rec := &recordingLogger{}
	m := newLamp(t)
	m.SetLogger(rec)

	_, err := m.Fire(t.Context(), dim, nil)
	require.NoError(t, err)
	_, err = m.Fire(t.Context(), flip, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"off/dim: no transition defined"}, rec.rejected)
	assert.Equal(t, []string{"off_flip"}, rec.executed)
	assert.Empty(t, rec.failed)
}
