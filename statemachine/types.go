// Package statemachine provides a generic, table-driven state machine.
//
// A Machine holds exactly one current state and a context value that it owns.
// Rules are keyed by (state, event); each rule carries an optional guard, an
// optional action, and a target state. Firing an event looks up the rule for
// the current state, evaluates the guard, runs the action, and moves to the
// target state. Events without a matching rule, or whose guard fails, are
// rejected and leave both state and context untouched.
package statemachine

import (
	"context"
	"fmt"
	"time"
)

// Guard decides whether a rule may fire. A false result must come with a
// human-readable reason. Guards must not mutate the context.
type Guard[C any] func(ctx context.Context, smCtx *C, payload any) (bool, string)

// Action performs the side effects of a rule on the machine context.
type Action[C any] func(ctx context.Context, smCtx *C, payload any) error

// Rule is one entry of the transition table.
type Rule[S, E comparable, C any] struct {
	Name   string
	From   S
	Event  E
	Guard  Guard[C]
	Action Action[C]
	To     S

	refusal string
}

// IsRefusal reports whether the rule was registered with Refuse.
func (r Rule[S, E, C]) IsRefusal() bool {
	return r.refusal != ""
}

// Refusal returns the rejection reason of a refusal rule.
func (r Rule[S, E, C]) Refusal() string {
	return r.refusal
}

func defaultRuleName[S, E comparable](from S, event E) string {
	return fmt.Sprintf("%v_%v", from, event)
}

// Outcome classifies the result of firing an event.
type Outcome int

const (
	// Accepted means the event moved the machine (possibly to the same state).
	Accepted Outcome = iota + 1
	// Rejected means no rule matched or the guard failed. Nothing changed.
	Rejected
	// Failed means an action returned an error or panicked.
	Failed
	// PartiallyFailed means the event was committed but its on-entry chain
	// stopped on an error. To and Path show where the machine rests.
	PartiallyFailed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	case PartiallyFailed:
		return "partially_failed"
	default:
		return "unknown"
	}
}

// Result describes what a call to Fire did.
type Result[S, E comparable] struct {
	Outcome Outcome
	Event   E
	From    S
	// To is the state the machine rests in after the call, including any
	// on-entry follow-ups.
	To S
	// Path lists every state visited, starting with From.
	Path []S
	// Reason is set for rejections.
	Reason string
}

func (r Result[S, E]) Accepted() bool {
	return r.Outcome == Accepted
}

func (r Result[S, E]) Rejected() bool {
	return r.Outcome == Rejected
}

// Err converts a non-accepted result into an error. It returns nil when the
// event was accepted.
func (r Result[S, E]) Err() error {
	switch r.Outcome {
	case Accepted:
		return nil
	case Rejected:
		return fmt.Errorf("%w: %v in state %v: %s", ErrRejected, r.Event, r.From, r.Reason)
	case PartiallyFailed:
		return fmt.Errorf("%w: %v from state %v stopped in %v", ErrFollowUpFailed, r.Event, r.From, r.To)
	default:
		return fmt.Errorf("%w: %v in state %v", ErrActionFailed, r.Event, r.From)
	}
}

// Transition is a committed state change as recorded in the history.
type Transition[S, E comparable] struct {
	Rule  string
	From  S
	Event E
	To    S
	At    time.Time
}

// Listener is notified after every committed transition.
type Listener[S, E comparable] func(ctx context.Context, t Transition[S, E])
