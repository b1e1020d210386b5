package validator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/amp-statemachine/statemachine"
)

var (
	ErrTransitionExists   = errors.New("transition already exists")
	ErrStateNotFound      = errors.New("state not found")
	ErrStateAlreadyExists = errors.New("state already exists")
	ErrAlreadyTerminal    = errors.New("already a terminal state")
	ErrInitialState       = errors.New("cannot remove the initial state")
)

// Fix is an automatic correction for a validation finding.
type Fix struct {
	Description string
	Apply       func(def *statemachine.Definition) error
}

// AddRefusal adds a refusal rule for an unhandled (state, event) pair.
func AddRefusal(state, event, reason string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Refuse '%s' in '%s' with %q", event, state, reason),
		Apply: func(def *statemachine.Definition) error {
			for _, t := range def.Transitions {
				if t.From == state && t.Event == event {
					return fmt.Errorf("%w: (%s, %s)", ErrTransitionExists, state, event)
				}
			}

			def.Transitions = append(def.Transitions, statemachine.TransitionConfig{
				From:   state,
				Event:  event,
				Refuse: reason,
			})

			return nil
		},
	}
}

// RemoveUnreachableState removes a state and every transition touching it.
func RemoveUnreachableState(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", state),
		Apply: func(def *statemachine.Definition) error {
			if def.InitialState == state {
				return fmt.Errorf("%w: '%s'", ErrInitialState, state)
			}

			if !slices.Contains(def.States, state) {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, state)
			}

			def.States = slices.DeleteFunc(def.States, func(s string) bool { return s == state })
			def.TerminalStates = slices.DeleteFunc(def.TerminalStates, func(s string) bool { return s == state })
			def.OnEntry = slices.DeleteFunc(def.OnEntry, func(oe statemachine.OnEntryConfig) bool {
				return oe.State == state
			})
			def.Transitions = slices.DeleteFunc(def.Transitions, func(t statemachine.TransitionConfig) bool {
				return t.From == state || t.To == state
			})

			return nil
		},
	}
}

// RenameState renames a state everywhere it is referenced.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(def *statemachine.Definition) error {
			if slices.Contains(def.States, newName) {
				return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
			}

			idx := slices.Index(def.States, oldName)
			if idx < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			def.States[idx] = newName

			if def.InitialState == oldName {
				def.InitialState = newName
			}

			for i, s := range def.TerminalStates {
				if s == oldName {
					def.TerminalStates[i] = newName
				}
			}

			for i, oe := range def.OnEntry {
				if oe.State == oldName {
					def.OnEntry[i].State = newName
				}
			}

			for i, t := range def.Transitions {
				if t.From == oldName {
					def.Transitions[i].From = newName
				}

				if t.To == oldName {
					def.Transitions[i].To = newName
				}
			}

			return nil
		},
	}
}

// MarkTerminal declares a state terminal.
func MarkTerminal(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Mark '%s' as a terminal state", state),
		Apply: func(def *statemachine.Definition) error {
			if slices.Contains(def.TerminalStates, state) {
				return fmt.Errorf("%w: '%s'", ErrAlreadyTerminal, state)
			}

			if !slices.Contains(def.States, state) {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, state)
			}

			def.TerminalStates = append(def.TerminalStates, state)

			return nil
		},
	}
}

// ApplyFixes applies fixes in order and stops at the first failure.
func ApplyFixes(def *statemachine.Definition, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix == nil || fix.Apply == nil {
			continue
		}

		if err := fix.Apply(def); err != nil {
			return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
		}
	}

	return nil
}

// Fixes collects the fixes attached to every finding in a result.
func (r ValidationResult) Fixes() []*Fix {
	var fixes []*Fix

	for _, e := range r.Errors {
		if e.Fix != nil {
			fixes = append(fixes, e.Fix)
		}
	}

	for _, w := range r.Warnings {
		if w.Fix != nil {
			fixes = append(fixes, w.Fix)
		}
	}

	return fixes
}
