package workflow

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/statemachine"
)

type Result = statemachine.Result[State, Event]

// Document is a document moving through review. It is safe for concurrent use.
type Document struct {
	sm *statemachine.Synchronized[State, Event, Record]
}

// Option configures a Document.
type Option func(*options)

type options struct {
	logger    statemachine.Logger
	listeners []statemachine.Listener[State, Event]
}

// WithLogger sets the transition logger. Nil silences it.
func WithLogger(l statemachine.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithListener registers a callback for every status change.
func WithListener(listener statemachine.Listener[State, Event]) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, listener)
	}
}

// New creates an empty draft owned by author.
func New(author string, opts ...Option) (*Document, error) {
	o := options{logger: statemachine.DefaultLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	def, err := Definition()
	if err != nil {
		return nil, err
	}

	machine, err := statemachine.Build[State, Event](def, Registry(), Record{Author: author})
	if err != nil {
		return nil, fmt.Errorf("failed to build document workflow: %w", err)
	}

	machine.SetLogger(o.logger)

	for _, l := range o.listeners {
		machine.OnTransition(l)
	}

	return &Document{sm: statemachine.NewSynchronized(machine)}, nil
}

// Definition returns the embedded workflow table.
func Definition() (*statemachine.Definition, error) {
	return definitions.Load(definitions.Workflow)
}

// Edit replaces the content. It is accepted only in draft and rejected; from
// rejected it also moves the document back to draft. The content is left
// untouched when the edit is refused.
func (d *Document) Edit(ctx context.Context, content string) (Result, error) {
	return d.sm.Fire(ctx, EventEdit, content)
}

func (d *Document) Submit(ctx context.Context) (Result, error) {
	return d.sm.Fire(ctx, EventSubmit, nil)
}

func (d *Document) Approve(ctx context.Context) (Result, error) {
	return d.sm.Fire(ctx, EventApprove, nil)
}

// Reject sends the document back with reason.
func (d *Document) Reject(ctx context.Context, reason string) (Result, error) {
	return d.sm.Fire(ctx, EventReject, reason)
}

func (d *Document) Publish(ctx context.Context) (Result, error) {
	return d.sm.Fire(ctx, EventPublish, nil)
}

func (d *Document) Status() State {
	return d.sm.CurrentState()
}

// IsFinal reports whether the document has reached a terminal status.
func (d *Document) IsFinal() bool {
	var final bool

	d.sm.Do(func(m *statemachine.Machine[State, Event, Record]) {
		final = m.IsTerminal(m.CurrentState())
	})

	return final
}

func (d *Document) Content() string {
	return d.sm.Context().Content
}

func (d *Document) Author() string {
	return d.sm.Context().Author
}

// RejectionReason is the reason given by the latest rejection. It is cleared
// when the document is resubmitted.
func (d *Document) RejectionReason() string {
	return d.sm.Context().RejectionReason
}

// Revisions counts accepted edits.
func (d *Document) Revisions() int {
	return d.sm.Context().Revisions
}

// Record returns a copy of the document's data.
func (d *Document) Record() Record {
	return d.sm.Context()
}

// History returns the committed status changes, oldest first.
func (d *Document) History() []statemachine.Transition[State, Event] {
	return d.sm.History()
}

// Permitted lists the events the document would accept right now.
func (d *Document) Permitted(ctx context.Context) []Event {
	var events []Event

	d.sm.Do(func(m *statemachine.Machine[State, Event, Record]) {
		events = m.PermittedEvents(ctx, "")
	})

	return events
}
