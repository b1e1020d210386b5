package statemachine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/amp-labs/amp-statemachine/logger"
)

// Registry maps the guard and action names used in a Definition to code.
type Registry[C any] struct {
	mu      sync.RWMutex
	guards  map[string]Guard[C]
	actions map[string]Action[C]
}

func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		guards:  make(map[string]Guard[C]),
		actions: make(map[string]Action[C]),
	}
}

// RegisterGuard adds a named guard. Later registrations replace earlier ones.
func (r *Registry[C]) RegisterGuard(name string, guard Guard[C]) *Registry[C] {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.guards[name] = guard

	return r
}

// RegisterAction adds a named action. Later registrations replace earlier ones.
func (r *Registry[C]) RegisterAction(name string, action Action[C]) *Registry[C] {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[name] = action

	return r
}

func (r *Registry[C]) Guard(name string) (Guard[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.guards[name]

	return g, ok
}

func (r *Registry[C]) Action(name string) (Action[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[name]

	return a, ok
}

// GuardNames returns the registered guard names, sorted.
func (r *Registry[C]) GuardNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.guards))
}

// ActionNames returns the registered action names, sorted.
func (r *Registry[C]) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.actions))
}

// Build validates def and wires it into a new machine using the guards and
// actions in reg. Unknown guard or action names are configuration errors.
func Build[S ~string, E ~string, C any](def *Definition, reg *Registry[C], smCtx C) (*Machine[S, E, C], error) {
	if err := def.Validate(); err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	if reg == nil {
		reg = NewRegistry[C]()
	}

	machine := New[S, E, C](S(def.InitialState), smCtx)
	machine.SetName(def.Name)

	for _, t := range def.Transitions {
		if err := wireTransition(machine, reg, t); err != nil {
			return nil, err
		}
	}

	for _, oe := range def.OnEntry {
		if err := machine.OnEntry(S(oe.State), E(oe.Event)); err != nil {
			return nil, err
		}
	}

	fingerprint, err := def.Fingerprint()
	if err != nil {
		return nil, err
	}

	logger.Get(context.Background()).Debug("state machine built",
		"machine", def.Name,
		"machine_id", machine.ID(),
		"fingerprint", fingerprint,
		"transitions", len(def.Transitions))

	return machine, nil
}

func wireTransition[S ~string, E ~string, C any](m *Machine[S, E, C], reg *Registry[C], t TransitionConfig) error {
	from, event := S(t.From), E(t.Event)

	if t.IsRefusal() {
		return m.Refuse(from, event, t.Refuse)
	}

	rule := Rule[S, E, C]{Name: t.Name, From: from, Event: event, To: S(t.To)}

	if t.Guard != "" {
		guard, ok := reg.Guard(t.Guard)
		if !ok {
			return &ConfigurationError{From: from, Event: event, Err: fmt.Errorf("%w: %q", ErrUnknownGuard, t.Guard)}
		}

		rule.Guard = guard
	}

	if t.Action != "" {
		action, ok := reg.Action(t.Action)
		if !ok {
			return &ConfigurationError{From: from, Event: event, Err: fmt.Errorf("%w: %q", ErrUnknownAction, t.Action)}
		}

		rule.Action = action
	}

	if rule.Name == "" && t.Action != "" {
		rule.Name = t.Action
	}

	return m.ConfigureRule(rule)
}

// Describe renders a machine's table as a Definition so that programmatic
// machines can be validated and diagrammed. Guard and action names are not
// recoverable and are left empty.
func Describe[S, E comparable, C any](m *Machine[S, E, C]) *Definition {
	def := &Definition{
		Name:         m.Name(),
		InitialState: fmt.Sprint(m.InitialState()),
	}

	var states []S

	addState := func(s S) {
		name := fmt.Sprint(s)
		if !slices.Contains(def.States, name) {
			def.States = append(def.States, name)
			states = append(states, s)
		}
	}

	addEvent := func(e E) {
		name := fmt.Sprint(e)
		if !slices.Contains(def.Events, name) {
			def.Events = append(def.Events, name)
		}
	}

	addState(m.InitialState())

	for _, r := range m.Rules() {
		addState(r.From)
		addEvent(r.Event)

		tc := TransitionConfig{Name: r.Name, From: fmt.Sprint(r.From), Event: fmt.Sprint(r.Event)}
		if r.IsRefusal() {
			tc.Name = ""
			tc.Refuse = r.Refusal()
		} else {
			addState(r.To)
			tc.To = fmt.Sprint(r.To)
		}

		def.Transitions = append(def.Transitions, tc)
	}

	entries := m.OnEntryEvents()
	for _, s := range states {
		if e, ok := entries[s]; ok {
			addEvent(e)
			def.OnEntry = append(def.OnEntry, OnEntryConfig{State: fmt.Sprint(s), Event: fmt.Sprint(e)})
		}
	}

	for _, s := range states {
		if m.IsTerminal(s) {
			def.TerminalStates = append(def.TerminalStates, fmt.Sprint(s))
		}
	}

	return def
}
