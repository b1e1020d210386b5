package statemachine

import (
	"context"
	"sync"
)

// Synchronized guards a machine with one mutex so that concurrent callers
// see each Fire, including its on-entry chain, as a single atomic step.
type Synchronized[S, E comparable, C any] struct {
	mu      sync.Mutex
	machine *Machine[S, E, C]
}

func NewSynchronized[S, E comparable, C any](machine *Machine[S, E, C]) *Synchronized[S, E, C] {
	return &Synchronized[S, E, C]{machine: machine}
}

func (s *Synchronized[S, E, C]) Fire(ctx context.Context, event E, payload any) (Result[S, E], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.Fire(ctx, event, payload)
}

func (s *Synchronized[S, E, C]) CanFire(ctx context.Context, event E, payload any) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.CanFire(ctx, event, payload)
}

func (s *Synchronized[S, E, C]) CurrentState() S {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.CurrentState()
}

func (s *Synchronized[S, E, C]) Context() C {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.Context()
}

func (s *Synchronized[S, E, C]) History() []Transition[S, E] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.History()
}

// Do runs f with exclusive access to the machine, for read-modify sequences
// that span several calls.
func (s *Synchronized[S, E, C]) Do(f func(m *Machine[S, E, C])) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f(s.machine)
}
