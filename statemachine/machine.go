package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/amp-labs/amp-statemachine/logger"
	"github.com/google/uuid"
)

const (
	DefaultName          = "statemachine"
	DefaultHistoryLimit  = 100
	DefaultMaxChainDepth = 8
)

type ruleKey[S, E comparable] struct {
	from  S
	event E
}

// Machine is a table-driven state machine over states S, events E and a
// context C that the machine owns. It is not safe for concurrent use; wrap it
// in Synchronized or Serial when several goroutines fire events.
type Machine[S, E comparable, C any] struct {
	id      uuid.UUID
	name    string
	initial S
	current S
	smCtx   C

	rules   map[ruleKey[S, E]]*Rule[S, E, C]
	order   []ruleKey[S, E]
	entries map[S]E

	cloner    func(C) C
	logger    Logger
	listeners []Listener[S, E]

	history      []Transition[S, E]
	historyLimit int
	maxChain     int
}

// New creates a machine resting in initial with the given context.
func New[S, E comparable, C any](initial S, smCtx C) *Machine[S, E, C] {
	return &Machine[S, E, C]{
		id:           uuid.New(),
		name:         DefaultName,
		initial:      initial,
		current:      initial,
		smCtx:        smCtx,
		rules:        make(map[ruleKey[S, E]]*Rule[S, E, C]),
		entries:      make(map[S]E),
		cloner:       func(c C) C { return c },
		logger:       DefaultLogger{},
		historyLimit: DefaultHistoryLimit,
		maxChain:     DefaultMaxChainDepth,
	}
}

func (m *Machine[S, E, C]) ID() string {
	return m.id.String()
}

func (m *Machine[S, E, C]) Name() string {
	return m.name
}

func (m *Machine[S, E, C]) SetName(name string) {
	if name != "" {
		m.name = name
	}
}

// SetLogger replaces the notification hooks. A nil logger silences the machine.
func (m *Machine[S, E, C]) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}

	m.logger = l
}

// SetCloner installs the function used to copy the context for Context() and
// for the snapshot taken before each action. The default is a plain value
// copy, which is only deep enough for contexts without maps, slices or
// pointers.
func (m *Machine[S, E, C]) SetCloner(cloner func(C) C) {
	if cloner != nil {
		m.cloner = cloner
	}
}

// SetHistoryLimit bounds the transition history. Zero or less disables it.
func (m *Machine[S, E, C]) SetHistoryLimit(limit int) {
	m.historyLimit = limit
	m.trimHistory()
}

func (m *Machine[S, E, C]) SetMaxChainDepth(depth int) {
	if depth > 0 {
		m.maxChain = depth
	}
}

// OnTransition registers a listener called after every committed transition.
func (m *Machine[S, E, C]) OnTransition(listener Listener[S, E]) {
	if listener != nil {
		m.listeners = append(m.listeners, listener)
	}
}

// Configure registers a rule for (from, event). Registering the same pair
// twice is a configuration error and keeps the first rule.
func (m *Machine[S, E, C]) Configure(from S, event E, guard Guard[C], action Action[C], to S) error {
	return m.ConfigureRule(Rule[S, E, C]{
		From:   from,
		Event:  event,
		Guard:  guard,
		Action: action,
		To:     to,
	})
}

func (m *Machine[S, E, C]) ConfigureRule(rule Rule[S, E, C]) error {
	key := ruleKey[S, E]{from: rule.From, event: rule.Event}
	if _, exists := m.rules[key]; exists {
		return &ConfigurationError{From: rule.From, Event: rule.Event, Err: ErrDuplicateRule}
	}

	if rule.Name == "" {
		rule.Name = defaultRuleName(rule.From, rule.Event)
	}

	m.rules[key] = &rule
	m.order = append(m.order, key)

	return nil
}

// Refuse registers a rule that always rejects event in state from with the
// given reason.
func (m *Machine[S, E, C]) Refuse(from S, event E, reason string) error {
	if reason == "" {
		return &ConfigurationError{From: from, Event: event, Err: ErrEmptyReason}
	}

	return m.ConfigureRule(Rule[S, E, C]{
		Name:  defaultRuleName(from, event) + "_refused",
		From:  from,
		Event: event,
		Guard: func(context.Context, *C, any) (bool, string) {
			return false, reason
		},
		To:      from,
		refusal: reason,
	})
}

// OnEntry makes the machine fire event automatically whenever it enters
// state from a different state.
func (m *Machine[S, E, C]) OnEntry(state S, event E) error {
	if _, exists := m.entries[state]; exists {
		return &ConfigurationError{From: state, Event: event, Err: ErrDuplicateOnEntry}
	}

	m.entries[state] = event

	return nil
}

func (m *Machine[S, E, C]) CurrentState() S {
	return m.current
}

func (m *Machine[S, E, C]) InitialState() S {
	return m.initial
}

// Context returns a copy of the machine context.
func (m *Machine[S, E, C]) Context() C {
	return m.cloner(m.smCtx)
}

// Rules returns the transition table in registration order.
func (m *Machine[S, E, C]) Rules() []Rule[S, E, C] {
	out := make([]Rule[S, E, C], 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.rules[key])
	}

	return out
}

// OnEntryEvents returns a copy of the registered on-entry follow-ups.
func (m *Machine[S, E, C]) OnEntryEvents() map[S]E {
	out := make(map[S]E, len(m.entries))
	for s, e := range m.entries {
		out[s] = e
	}

	return out
}

// History returns committed transitions, oldest first.
func (m *Machine[S, E, C]) History() []Transition[S, E] {
	out := make([]Transition[S, E], len(m.history))
	copy(out, m.history)

	return out
}

// IsTerminal reports whether state has no outgoing rule other than refusals.
func (m *Machine[S, E, C]) IsTerminal(state S) bool {
	for _, key := range m.order {
		if key.from == state && !m.rules[key].IsRefusal() {
			return false
		}
	}

	return true
}

// CanFire evaluates the guard for event in the current state without
// running any action.
func (m *Machine[S, E, C]) CanFire(ctx context.Context, event E, payload any) (bool, string) {
	rule, ok := m.rules[ruleKey[S, E]{from: m.current, event: event}]
	if !ok {
		return false, ReasonNoTransition
	}

	return m.evaluate(ctx, rule, payload)
}

// PermittedEvents lists the events whose guards pass in the current state,
// in registration order.
func (m *Machine[S, E, C]) PermittedEvents(ctx context.Context, payload any) []E {
	var events []E

	for _, key := range m.order {
		if key.from != m.current {
			continue
		}

		if ok, _ := m.evaluate(ctx, m.rules[key], payload); ok {
			events = append(events, key.event)
		}
	}

	return events
}

// Fire delivers event with payload to the machine.
//
// A rejected event returns a Rejected result and a nil error. An action
// failure returns an *ActionFailedError; the failing step is not committed
// and the context is restored from the snapshot taken before the action.
// Accepted transitions into a state with an on-entry event fire that event
// next, and the result covers the whole chain. If the chain stops on an
// error the committed steps stand and the outcome is PartiallyFailed.
func (m *Machine[S, E, C]) Fire(ctx context.Context, event E, payload any) (Result[S, E], error) {
	start := time.Now()
	from := m.current
	fromLabel, eventLabel := label(from), label(event)

	ctx = logger.With(ctx, "machine", m.name, "machine_id", m.ID())
	ctx, span := startFireSpan(ctx, m.name, m.ID(), fromLabel, eventLabel)

	res := Result[S, E]{Event: event, From: from, To: from, Path: []S{from}}

	err := m.fire(ctx, event, payload, &res)

	res.To = m.current
	finishFireSpan(span, label(res.To), res.Outcome, res.Reason, err)
	recordEvent(m.name, fromLabel, eventLabel, res.Outcome, time.Since(start))

	return res, err
}

func (m *Machine[S, E, C]) fire(ctx context.Context, event E, payload any, res *Result[S, E]) error {
	st, err := m.step(ctx, event, payload)
	if err != nil {
		res.Outcome = Failed

		return err
	}

	if !st.accepted {
		res.Outcome = Rejected
		res.Reason = st.reason

		return nil
	}

	res.Outcome = Accepted
	res.Path = append(res.Path, st.to)

	for depth := 0; ; depth++ {
		if st.to == st.from {
			return nil
		}

		next, ok := m.entries[st.to]
		if !ok {
			return nil
		}

		if depth >= m.maxChain {
			res.Outcome = PartiallyFailed

			return fmt.Errorf("%w: stopped at %v after %d follow-ups", ErrChainTooDeep, m.current, depth)
		}

		st, err = m.step(ctx, next, nil)
		if err != nil {
			res.Outcome = PartiallyFailed

			return err
		}

		if !st.accepted {
			// The committed part of the chain stands.
			return nil
		}

		res.Path = append(res.Path, st.to)
	}
}

type stepResult[S comparable] struct {
	accepted bool
	reason   string
	from     S
	to       S
}

// step handles a single event against the current state and commits it if
// the guard passes and the action succeeds.
func (m *Machine[S, E, C]) step(ctx context.Context, event E, payload any) (stepResult[S], error) {
	from := m.current
	fromLabel, eventLabel := label(from), label(event)

	rule, ok := m.rules[ruleKey[S, E]{from: from, event: event}]
	if !ok {
		recordRejection(m.name, fromLabel, eventLabel, causeNoTransition)
		m.logger.EventRejected(ctx, fromLabel, eventLabel, ReasonNoTransition)

		return stepResult[S]{reason: ReasonNoTransition, from: from, to: from}, nil
	}

	if passed, reason := m.evaluate(ctx, rule, payload); !passed {
		recordRejection(m.name, fromLabel, eventLabel, causeGuard)
		m.logger.EventRejected(ctx, fromLabel, eventLabel, reason)

		return stepResult[S]{reason: reason, from: from, to: from}, nil
	}

	if rule.Action != nil {
		snapshot := m.cloner(m.smCtx)

		if err := m.runAction(ctx, rule, payload); err != nil {
			m.smCtx = snapshot
			failure := &ActionFailedError{Rule: rule.Name, From: from, Event: event, To: rule.To, Err: err}
			m.logger.ActionFailed(ctx, rule.Name, failure)

			return stepResult[S]{from: from, to: from}, failure
		}
	}

	m.current = rule.To
	toLabel := label(rule.To)

	t := Transition[S, E]{Rule: rule.Name, From: from, Event: event, To: rule.To, At: time.Now()}
	m.record(t)

	recordTransition(m.name, fromLabel, toLabel)
	m.logger.TransitionExecuted(ctx, rule.Name, fromLabel, toLabel, eventLabel)
	m.logger.EventAccepted(ctx, fromLabel, toLabel, eventLabel)

	for _, listener := range m.listeners {
		listener(ctx, t)
	}

	return stepResult[S]{accepted: true, from: from, to: rule.To}, nil
}

func (m *Machine[S, E, C]) evaluate(ctx context.Context, rule *Rule[S, E, C], payload any) (bool, string) {
	if rule.Guard == nil {
		return true, ""
	}

	ok, reason := rule.Guard(ctx, &m.smCtx, payload)
	if !ok && reason == "" {
		reason = "guard rejected " + label(rule.Event)
	}

	return ok, reason
}

func (m *Machine[S, E, C]) runAction(ctx context.Context, rule *Rule[S, E, C], payload any) (err error) {
	ctx, span := startActionSpan(ctx, rule.Name, label(rule.From), label(rule.To), label(rule.Event))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanic, r)
		}

		endSpan(span, err)
	}()

	return rule.Action(ctx, &m.smCtx, payload)
}

func (m *Machine[S, E, C]) record(t Transition[S, E]) {
	if m.historyLimit <= 0 {
		return
	}

	m.history = append(m.history, t)
	m.trimHistory()
}

func (m *Machine[S, E, C]) trimHistory() {
	if m.historyLimit <= 0 {
		m.history = nil

		return
	}

	if over := len(m.history) - m.historyLimit; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
}
