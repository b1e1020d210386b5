package statemachine

import (
	"context"

	"github.com/alitto/pond/v2"
	"go.uber.org/atomic"
)

// FireResult pairs a Result with the error Fire returned.
type FireResult[S, E comparable] struct {
	Result Result[S, E]
	Err    error
}

// Serial feeds a machine from a single-consumer queue. Events submitted from
// any goroutine are applied one at a time in submission order.
type Serial[S, E comparable, C any] struct {
	machine  *Machine[S, E, C]
	pool     pond.ResultPool[FireResult[S, E]]
	inFlight *atomic.Int64
}

func NewSerial[S, E comparable, C any](machine *Machine[S, E, C]) *Serial[S, E, C] {
	return &Serial[S, E, C]{
		machine:  machine,
		pool:     pond.NewResultPool[FireResult[S, E]](1),
		inFlight: atomic.NewInt64(0),
	}
}

// Submit queues event and returns immediately. Wait on the returned task for
// the outcome. Events whose ctx is done before they run are not applied.
// After Stop the task fails with pond.ErrPoolStopped.
func (s *Serial[S, E, C]) Submit(ctx context.Context, event E, payload any) pond.ResultTask[FireResult[S, E]] {
	started := atomic.NewBool(false)

	s.setPending(s.inFlight.Inc())

	task := s.pool.Submit(func() FireResult[S, E] {
		started.Store(true)
		defer func() { s.setPending(s.inFlight.Dec()) }()

		if err := ctx.Err(); err != nil {
			return FireResult[S, E]{Err: err}
		}

		res, err := s.machine.Fire(ctx, event, payload)

		return FireResult[S, E]{Result: res, Err: err}
	})

	// A rejected submission is resolved before Submit returns and never runs.
	select {
	case <-task.Done():
		if !started.Load() {
			s.setPending(s.inFlight.Dec())
		}
	default:
	}

	return task
}

// Fire submits event and waits for it to be applied.
func (s *Serial[S, E, C]) Fire(ctx context.Context, event E, payload any) (Result[S, E], error) {
	out, err := s.Submit(ctx, event, payload).Wait()
	if err != nil {
		return Result[S, E]{}, err
	}

	return out.Result, out.Err
}

// CurrentState reads the state from inside the queue, after every event
// submitted before it.
func (s *Serial[S, E, C]) CurrentState() (S, error) {
	var state S

	_, err := s.pool.Submit(func() FireResult[S, E] {
		state = s.machine.CurrentState()

		return FireResult[S, E]{}
	}).Wait()

	return state, err
}

// Context reads a copy of the context from inside the queue.
func (s *Serial[S, E, C]) Context() (C, error) {
	var smCtx C

	_, err := s.pool.Submit(func() FireResult[S, E] {
		smCtx = s.machine.Context()

		return FireResult[S, E]{}
	}).Wait()

	return smCtx, err
}

// Pending reports how many events are queued or running.
func (s *Serial[S, E, C]) Pending() int64 {
	return s.inFlight.Load()
}

// Stop waits for queued events to finish and rejects new ones.
func (s *Serial[S, E, C]) Stop() {
	s.pool.StopAndWait()
}

func (s *Serial[S, E, C]) setPending(n int64) {
	serialPending.WithLabelValues(s.machine.Name()).Set(float64(n))
}
