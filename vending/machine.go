package vending

import (
	"context"
	"fmt"

	"facette.io/natsort"
	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/cockroachdb/apd/v3"
)

type Result = statemachine.Result[State, Event]

// Machine is a vending machine. It is safe for concurrent use.
type Machine struct {
	sm *statemachine.Synchronized[State, Event, Till]
}

// Option configures a Machine.
type Option func(*options)

type options struct {
	catalog Catalog
	logger  statemachine.Logger
	def     *statemachine.Definition
}

// WithCatalog replaces the factory inventory.
func WithCatalog(catalog Catalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}

// WithLogger sets the transition logger. Nil silences it.
func WithLogger(l statemachine.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDefinition builds the machine from def instead of the embedded table.
func WithDefinition(def *statemachine.Definition) Option {
	return func(o *options) {
		o.def = def
	}
}

// New builds a vending machine from the embedded definition.
func New(opts ...Option) (*Machine, error) {
	o := options{catalog: DefaultCatalog(), logger: statemachine.DefaultLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	def := o.def
	if def == nil {
		var err error

		def, err = Definition()
		if err != nil {
			return nil, err
		}
	}

	machine, err := statemachine.Build[State, Event](def, Registry(), newTill(o.catalog))
	if err != nil {
		return nil, fmt.Errorf("failed to build vending machine: %w", err)
	}

	machine.SetCloner(cloneTill)
	machine.SetLogger(o.logger)

	return &Machine{sm: statemachine.NewSynchronized(machine)}, nil
}

// Definition returns the embedded vending table.
func Definition() (*statemachine.Definition, error) {
	return definitions.Load(definitions.Vending)
}

func (m *Machine) InsertCoin(ctx context.Context, amount *apd.Decimal) (Result, error) {
	return m.sm.Fire(ctx, EventInsertCoin, amount)
}

// SelectProduct picks a product. When the guard passes the machine moves
// through dispensing and back to idle within this call.
func (m *Machine) SelectProduct(ctx context.Context, product string) (Result, error) {
	return m.sm.Fire(ctx, EventSelectProduct, product)
}

func (m *Machine) Dispense(ctx context.Context) (Result, error) {
	return m.sm.Fire(ctx, EventDispense, nil)
}

func (m *Machine) ReturnMoney(ctx context.Context) (Result, error) {
	return m.sm.Fire(ctx, EventReturnMoney, nil)
}

func (m *Machine) State() State {
	return m.sm.CurrentState()
}

func (m *Machine) Balance() *apd.Decimal {
	return m.read(func(t *Till) *apd.Decimal { return copyMoney(&t.Balance) })
}

// LastChange is the change returned by the most recent purchase.
func (m *Machine) LastChange() *apd.Decimal {
	return m.read(func(t *Till) *apd.Decimal { return copyMoney(&t.LastChange) })
}

// LastRefund is the amount returned by the most recent ReturnMoney.
func (m *Machine) LastRefund() *apd.Decimal {
	return m.read(func(t *Till) *apd.Decimal { return copyMoney(&t.LastRefund) })
}

// Stock returns the remaining count for product.
func (m *Machine) Stock(product string) (int, bool) {
	var (
		count int
		ok    bool
	)

	m.sm.Do(func(sm *statemachine.Machine[State, Event, Till]) {
		var item *Item
		if item, ok = sm.Context().Inventory[product]; ok {
			count = item.Stock
		}
	})

	return count, ok
}

// Listing is one line of the inventory display.
type Listing struct {
	Name  string
	Price *apd.Decimal
	Stock int
}

func (l Listing) InStock() bool {
	return l.Stock > 0
}

func (l Listing) String() string {
	return fmt.Sprintf("%s: %s (stock: %d)", l.Name, FormatMoney(l.Price), l.Stock)
}

// Inventory lists every product in natural name order.
func (m *Machine) Inventory() []Listing {
	var listings []Listing

	m.sm.Do(func(sm *statemachine.Machine[State, Event, Till]) {
		inventory := sm.Context().Inventory

		names := make([]string, 0, len(inventory))
		for name := range inventory {
			names = append(names, name)
		}

		natsort.Sort(names)

		listings = make([]Listing, 0, len(names))
		for _, name := range names {
			item := inventory[name]
			listings = append(listings, Listing{Name: name, Price: copyMoney(&item.Price), Stock: item.Stock})
		}
	})

	return listings
}

// History returns the committed transitions, oldest first.
func (m *Machine) History() []statemachine.Transition[State, Event] {
	return m.sm.History()
}

// Unwrap exposes the underlying machine under the facade's lock, e.g. for
// validation or diagram rendering.
func (m *Machine) Unwrap(f func(sm *statemachine.Machine[State, Event, Till])) {
	m.sm.Do(f)
}

func (m *Machine) read(f func(t *Till) *apd.Decimal) *apd.Decimal {
	var out *apd.Decimal

	m.sm.Do(func(sm *statemachine.Machine[State, Event, Till]) {
		till := sm.Context()
		out = f(&till)
	})

	return out
}
