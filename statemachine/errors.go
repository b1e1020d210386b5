package statemachine

import (
	"errors"
	"fmt"
)

// ReasonNoTransition is the rejection reason when no rule matches.
const ReasonNoTransition = "no transition defined"

var (
	ErrDuplicateRule     = errors.New("duplicate transition rule")
	ErrDuplicateOnEntry  = errors.New("duplicate on-entry event")
	ErrEmptyReason       = errors.New("refusal reason is required")
	ErrRejected          = errors.New("event rejected")
	ErrActionFailed      = errors.New("action failed")
	ErrActionPanic       = errors.New("action panicked")
	ErrChainTooDeep      = errors.New("on-entry chain too deep")
	ErrFollowUpFailed    = errors.New("on-entry follow-up failed")
	ErrUnknownGuard      = errors.New("unknown guard")
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidDefinition = errors.New("invalid definition")
	ErrNoLoader          = errors.New("no definition loader configured")
)

// ConfigurationError is returned while setting up a machine. It is fatal to
// setup and never produced by Fire.
type ConfigurationError struct {
	From  any
	Event any
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.From == nil && e.Event == nil {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}

	return fmt.Sprintf("configuration error for (%v, %v): %v", e.From, e.Event, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ActionFailedError reports an action that returned an error or panicked.
// The transition it belonged to was not committed.
type ActionFailedError struct {
	Rule  string
	From  any
	Event any
	To    any
	Err   error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %q failed on %v --%v--> %v: %v", e.Rule, e.From, e.Event, e.To, e.Err)
}

// Unwrap exposes both ErrActionFailed and the underlying cause to errors.Is.
func (e *ActionFailedError) Unwrap() []error {
	return []error{ErrActionFailed, e.Err}
}
