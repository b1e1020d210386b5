package testing

import (
	"errors"
	"fmt"
	"time"
)

// Matcher errors.
var (
	ErrNoTrace              = errors.New("no events recorded")
	ErrUnexpectedState      = errors.New("unexpected state")
	ErrStateNotVisited      = errors.New("state was not visited")
	ErrTransitionNotTaken   = errors.New("transition was not taken")
	ErrEventNotRejected     = errors.New("event was not rejected")
	ErrContextMismatch      = errors.New("context does not match")
	ErrLastFireSucceeded    = errors.New("last fire returned no error")
	ErrNoMatchersPassed     = errors.New("no matchers passed")
	ErrExecutionTooSlow     = errors.New("execution exceeded time limit")
	ErrUnexpectedRejections = errors.New("unexpected rejections")
)

// Matcher is an assertion over a recorder.
type Matcher[S, E comparable, C any] interface {
	Match(r *Recorder[S, E, C]) (bool, error)
	Description() string
}

type matcherFunc[S, E comparable, C any] struct {
	desc  string
	match func(r *Recorder[S, E, C]) error
}

func (m matcherFunc[S, E, C]) Match(r *Recorder[S, E, C]) (bool, error) {
	if err := m.match(r); err != nil {
		return false, err
	}

	return true, nil
}

func (m matcherFunc[S, E, C]) Description() string {
	return m.desc
}

// StateIs matches the current state.
func StateIs[S, E comparable, C any](state S) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: fmt.Sprintf("state should be '%v'", state),
		match: func(r *Recorder[S, E, C]) error {
			if actual := r.CurrentState(); actual != state {
				return fmt.Errorf("%w: expected '%v', got '%v'", ErrUnexpectedState, state, actual)
			}

			return nil
		},
	}
}

// StateWasVisited matches if a committed transition entered state.
func StateWasVisited[S, E comparable, C any](state S) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: fmt.Sprintf("state '%v' should be visited", state),
		match: func(r *Recorder[S, E, C]) error {
			for _, tr := range r.transitions {
				if tr.To == state {
					return nil
				}
			}

			return fmt.Errorf("%w: '%v'", ErrStateNotVisited, state)
		},
	}
}

// TransitionWasTaken matches a committed from -> to transition.
func TransitionWasTaken[S, E comparable, C any](from, to S) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: fmt.Sprintf("transition from '%v' to '%v' should be taken", from, to),
		match: func(r *Recorder[S, E, C]) error {
			for _, tr := range r.transitions {
				if tr.From == from && tr.To == to {
					return nil
				}
			}

			return fmt.Errorf("%w: from '%v' to '%v'", ErrTransitionNotTaken, from, to)
		},
	}
}

// EventWasRejected matches if any recorded fire of event was rejected with
// reason. An empty reason matches any rejection.
func EventWasRejected[S, E comparable, C any](event E, reason string) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: fmt.Sprintf("event '%v' should be rejected", event),
		match: func(r *Recorder[S, E, C]) error {
			for _, entry := range r.trace {
				if entry.Event == event && entry.Result.Rejected() &&
					(reason == "" || entry.Result.Reason == reason) {
					return nil
				}
			}

			return fmt.Errorf("%w: '%v' (%q)", ErrEventNotRejected, event, reason)
		},
	}
}

// NoRejections matches if every recorded fire was accepted.
func NoRejections[S, E comparable, C any]() Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: "no event should be rejected",
		match: func(r *Recorder[S, E, C]) error {
			var rejected []string

			for _, entry := range r.trace {
				if entry.Result.Rejected() {
					rejected = append(rejected, fmt.Sprintf("%v: %s", entry.Event, entry.Result.Reason))
				}
			}

			if len(rejected) > 0 {
				return fmt.Errorf("%w: %v", ErrUnexpectedRejections, rejected)
			}

			return nil
		},
	}
}

// LastFireFailed matches if the most recent fire returned an error.
func LastFireFailed[S, E comparable, C any]() Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: "last fire should fail",
		match: func(r *Recorder[S, E, C]) error {
			if len(r.trace) == 0 {
				return ErrNoTrace
			}

			if r.trace[len(r.trace)-1].Error == nil {
				return ErrLastFireSucceeded
			}

			return nil
		},
	}
}

// ContextSatisfies matches the machine context against a predicate.
func ContextSatisfies[S, E comparable, C any](description string, check func(C) bool) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: "context: " + description,
		match: func(r *Recorder[S, E, C]) error {
			if !check(r.Context()) {
				return fmt.Errorf("%w: %s", ErrContextMismatch, description)
			}

			return nil
		},
	}
}

// TookLessThan matches if the recorded fires took less than d in total.
func TookLessThan[S, E comparable, C any](d time.Duration) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: fmt.Sprintf("execution should take less than %s", d),
		match: func(r *Recorder[S, E, C]) error {
			var total time.Duration
			for _, entry := range r.trace {
				total += entry.Duration
			}

			if total > d {
				return fmt.Errorf("%w: took %s, max %s", ErrExecutionTooSlow, total, d)
			}

			return nil
		},
	}
}

// All requires every matcher to pass.
func All[S, E comparable, C any](matchers ...Matcher[S, E, C]) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: "all matchers should pass",
		match: func(r *Recorder[S, E, C]) error {
			for _, m := range matchers {
				if ok, err := m.Match(r); !ok {
					return err
				}
			}

			return nil
		},
	}
}

// Any requires at least one matcher to pass.
func Any[S, E comparable, C any](matchers ...Matcher[S, E, C]) Matcher[S, E, C] {
	return matcherFunc[S, E, C]{
		desc: "at least one matcher should pass",
		match: func(r *Recorder[S, E, C]) error {
			for _, m := range matchers {
				if ok, _ := m.Match(r); ok {
					return nil
				}
			}

			return ErrNoMatchersPassed
		},
	}
}
