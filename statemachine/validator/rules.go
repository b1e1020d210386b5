package validator

import (
	"fmt"
	"sync"

	"github.com/amp-labs/amp-statemachine/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a definition for one kind of problem.
type Rule interface {
	Name() string
	Severity() Severity
	Check(def *statemachine.Definition) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&structureRule{},
		&unreachableStateRule{},
		&deadEndRule{},
		&terminalExitRule{},
		&onEntryRule{},
		&unhandledEventRule{},
		&unusedEventRule{},
		&namingConventionRule{},
		&spanNamingRule{},
	}
}

var (
	customMu    sync.Mutex //nolint:gochecknoglobals
	customRules []Rule     //nolint:gochecknoglobals
)

// RegisterRule adds a custom rule that every validation run includes.
func RegisterRule(rule Rule) {
	customMu.Lock()
	defer customMu.Unlock()

	customRules = append(customRules, rule)
}

func registeredRules() []Rule {
	customMu.Lock()
	defer customMu.Unlock()

	out := make([]Rule, len(customRules))
	copy(out, customRules)

	return out
}

type table struct {
	def      *statemachine.Definition
	terminal map[string]bool
	// accepting[state][event] = target, for non-refusal transitions
	accepting map[string]map[string]string
	handled   map[[2]string]bool
}

func newTable(def *statemachine.Definition) *table {
	t := &table{
		def:       def,
		terminal:  make(map[string]bool, len(def.TerminalStates)),
		accepting: make(map[string]map[string]string),
		handled:   make(map[[2]string]bool, len(def.Transitions)),
	}

	for _, s := range def.TerminalStates {
		t.terminal[s] = true
	}

	for _, tr := range def.Transitions {
		t.handled[[2]string{tr.From, tr.Event}] = true

		if tr.IsRefusal() {
			continue
		}

		if t.accepting[tr.From] == nil {
			t.accepting[tr.From] = make(map[string]string)
		}

		if _, exists := t.accepting[tr.From][tr.Event]; !exists {
			t.accepting[tr.From][tr.Event] = tr.To
		}
	}

	return t
}

// reachable returns every state reachable from the initial state through
// accepting transitions.
func (t *table) reachable() map[string]bool {
	seen := map[string]bool{t.def.InitialState: true}
	queue := []string{t.def.InitialState}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, tr := range t.def.Transitions {
			if tr.From == current && !tr.IsRefusal() && !seen[tr.To] {
				seen[tr.To] = true
				queue = append(queue, tr.To)
			}
		}
	}

	return seen
}

type structureRule struct{}

func (r *structureRule) Name() string       { return "Structure" }
func (r *structureRule) Severity() Severity { return SeverityError }

func (r *structureRule) Check(def *statemachine.Definition) RuleResult {
	if err := def.Validate(); err != nil {
		return RuleResult{Errors: []ValidationError{{
			Code:     "INVALID_DEFINITION",
			Message:  err.Error(),
			Location: Location{Index: -1},
		}}}
	}

	return RuleResult{}
}

type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string       { return "UnreachableState" }
func (r *unreachableStateRule) Severity() Severity { return SeverityError }

func (r *unreachableStateRule) Check(def *statemachine.Definition) RuleResult {
	var errs []ValidationError

	reachable := newTable(def).reachable()

	for _, state := range def.States {
		if reachable[state] {
			continue
		}

		errs = append(errs, ValidationError{
			Code: "UNREACHABLE_STATE",
			Message: fmt.Sprintf("state '%s' cannot be reached from initial state '%s'",
				state, def.InitialState),
			Location: Location{State: state, Index: -1},
			Fix:      RemoveUnreachableState(state),
		})
	}

	return RuleResult{Errors: errs}
}

// deadEndRule flags non-terminal states that can never be left.
type deadEndRule struct{}

func (r *deadEndRule) Name() string       { return "DeadEnd" }
func (r *deadEndRule) Severity() Severity { return SeverityError }

func (r *deadEndRule) Check(def *statemachine.Definition) RuleResult {
	var errs []ValidationError

	t := newTable(def)

	for _, state := range def.States {
		if t.terminal[state] {
			continue
		}

		leaves := false

		for _, to := range t.accepting[state] {
			if to != state {
				leaves = true

				break
			}
		}

		if !leaves {
			errs = append(errs, ValidationError{
				Code:     "DEAD_END_STATE",
				Message:  fmt.Sprintf("non-terminal state '%s' has no transition to another state", state),
				Location: Location{State: state, Index: -1},
				Fix:      MarkTerminal(state),
			})
		}
	}

	return RuleResult{Errors: errs}
}

type terminalExitRule struct{}

func (r *terminalExitRule) Name() string       { return "TerminalExit" }
func (r *terminalExitRule) Severity() Severity { return SeverityError }

func (r *terminalExitRule) Check(def *statemachine.Definition) RuleResult {
	var errs []ValidationError

	t := newTable(def)

	for i, tr := range def.Transitions {
		if t.terminal[tr.From] && !tr.IsRefusal() {
			errs = append(errs, ValidationError{
				Code: "TERMINAL_STATE_EXIT",
				Message: fmt.Sprintf("terminal state '%s' accepts event '%s' (to '%s')",
					tr.From, tr.Event, tr.To),
				Location: Location{State: tr.From, Event: tr.Event, Index: i},
			})
		}
	}

	return RuleResult{Errors: errs}
}

// onEntryRule checks that on-entry follow-ups can fire and do not loop.
type onEntryRule struct{}

func (r *onEntryRule) Name() string       { return "OnEntry" }
func (r *onEntryRule) Severity() Severity { return SeverityError }

func (r *onEntryRule) Check(def *statemachine.Definition) RuleResult {
	var result RuleResult

	t := newTable(def)

	entries := make(map[string]string, len(def.OnEntry))
	for _, oe := range def.OnEntry {
		entries[oe.State] = oe.Event
	}

	for _, oe := range def.OnEntry {
		if _, ok := t.accepting[oe.State][oe.Event]; !ok {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code: "ON_ENTRY_UNHANDLED",
				Message: fmt.Sprintf("on-entry event '%s' is never accepted in state '%s'",
					oe.Event, oe.State),
				Location: Location{State: oe.State, Event: oe.Event, Index: -1},
			})

			continue
		}

		visited := map[string]bool{oe.State: true}
		state := oe.State

		for {
			event, ok := entries[state]
			if !ok {
				break
			}

			next, ok := t.accepting[state][event]
			if !ok || next == state {
				break
			}

			if visited[next] {
				result.Errors = append(result.Errors, ValidationError{
					Code:     "ON_ENTRY_LOOP",
					Message:  fmt.Sprintf("on-entry chain starting at '%s' loops back to '%s'", oe.State, next),
					Location: Location{State: oe.State, Event: oe.Event, Index: -1},
				})

				break
			}

			visited[next] = true
			state = next
		}
	}

	return result
}

// unhandledEventRule warns about (state, event) pairs that fall back to the
// generic "no transition defined" rejection.
type unhandledEventRule struct{}

func (r *unhandledEventRule) Name() string       { return "UnhandledEvent" }
func (r *unhandledEventRule) Severity() Severity { return SeverityWarning }

func (r *unhandledEventRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	t := newTable(def)

	for _, state := range def.States {
		for _, event := range def.Events {
			if t.handled[[2]string{state, event}] {
				continue
			}

			warnings = append(warnings, ValidationWarning{
				Code:     "UNHANDLED_EVENT",
				Message:  fmt.Sprintf("event '%s' has no rule in state '%s'", event, state),
				Location: Location{State: state, Event: event, Index: -1},
				Fix:      AddRefusal(state, event, fmt.Sprintf("cannot %s in %s", event, state)),
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

type unusedEventRule struct{}

func (r *unusedEventRule) Name() string       { return "UnusedEvent" }
func (r *unusedEventRule) Severity() Severity { return SeverityWarning }

func (r *unusedEventRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	used := make(map[string]bool)

	for _, tr := range def.Transitions {
		if !tr.IsRefusal() {
			used[tr.Event] = true
		}
	}

	for _, event := range def.Events {
		if !used[event] {
			warnings = append(warnings, ValidationWarning{
				Code:     "UNUSED_EVENT",
				Message:  fmt.Sprintf("event '%s' is never accepted in any state", event),
				Location: Location{Event: event, Index: -1},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

type namingConventionRule struct{}

func (r *namingConventionRule) Name() string       { return "NamingConvention" }
func (r *namingConventionRule) Severity() Severity { return SeverityWarning }

func (r *namingConventionRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	for _, state := range def.States {
		if !isSnakeCase(state) {
			warnings = append(warnings, ValidationWarning{
				Code: "NAMING_CONVENTION",
				Message: fmt.Sprintf("state '%s' should use snake_case naming (suggested: '%s')",
					state, toSnakeCase(state)),
				Location: Location{State: state, Index: -1},
				Fix:      RenameState(state, toSnakeCase(state)),
			})
		}
	}

	for _, event := range def.Events {
		if !isSnakeCase(event) {
			warnings = append(warnings, ValidationWarning{
				Code: "NAMING_CONVENTION",
				Message: fmt.Sprintf("event '%s' should use snake_case naming (suggested: '%s')",
					event, toSnakeCase(event)),
				Location: Location{Event: event, Index: -1},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

func isSnakeCase(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r == '-' || r == ' ' {
			return false
		}
	}

	return true
}

func toSnakeCase(s string) string {
	var result []rune

	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				result = append(result, '_')
			}

			result = append(result, r+('a'-'A'))
		case r == '-' || r == ' ':
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}

	return string(result)
}
