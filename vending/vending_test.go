package vending

import (
	"sync"
	"testing"

	"github.com/amp-labs/amp-statemachine/statemachine"
	smtest "github.com/amp-labs/amp-statemachine/statemachine/testing"
	"github.com/cockroachdb/apd/v3"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T, opts ...Option) *Machine {
	t.Helper()

	opts = append([]Option{WithLogger(statemachine.NewSlogLogger(slogt.New(t)))}, opts...)

	m, err := New(opts...)
	require.NoError(t, err)

	return m
}

func assertMoney(t *testing.T, expected string, actual *apd.Decimal) {
	t.Helper()

	assert.Equal(t, expected, FormatMoney(actual))
}

func TestPurchaseExactChange(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := newMachine(t)

	res, err := m.InsertCoin(ctx, MustParseMoney("1.00"))
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, StateHasMoney, m.State())
	assertMoney(t, "$1.00", m.Balance())

	res, err = m.InsertCoin(ctx, MustParseMoney("0.50"))
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, StateHasMoney, m.State())
	assertMoney(t, "$1.50", m.Balance())

	res, err = m.SelectProduct(ctx, "Coke")
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, []State{StateHasMoney, StateDispensing, StateIdle}, res.Path)
	assert.Equal(t, StateIdle, res.To)
	assert.Equal(t, StateIdle, m.State())

	stock, ok := m.Stock("Coke")
	require.True(t, ok)
	assert.Equal(t, 9, stock)
	assertMoney(t, "$0.00", m.Balance())
	assertMoney(t, "$0.00", m.LastChange())
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := newMachine(t)

	_, err := m.InsertCoin(ctx, MustParseMoney("0.50"))
	require.NoError(t, err)

	res, err := m.SelectProduct(ctx, "Chips")
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Equal(t, "insufficient funds: need $2.00, have $0.50", res.Reason)
	assert.Contains(t, res.Reason, "insufficient funds")

	assert.Equal(t, StateHasMoney, m.State())
	assertMoney(t, "$0.50", m.Balance())

	stock, _ := m.Stock("Chips")
	assert.Equal(t, 12, stock)
}

func TestPurchaseWithChange(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := newMachine(t)

	_, err := m.InsertCoin(ctx, MustParseMoney("2.00"))
	require.NoError(t, err)

	res, err := m.SelectProduct(ctx, "Candy")
	require.NoError(t, err)
	require.True(t, res.Accepted())

	assertMoney(t, "$0.75", m.LastChange())
	assertMoney(t, "$0.00", m.Balance())

	history := m.History()
	require.Len(t, history, 3)
	assert.Equal(t, "first_coin", history[0].Rule)
	assert.Equal(t, "select_product", history[1].Rule)
	assert.Equal(t, "dispense_product", history[2].Rule)
}

func TestReturnMoney(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := newMachine(t)

	_, err := m.InsertCoin(ctx, MustParseMoney("5.00"))
	require.NoError(t, err)

	res, err := m.ReturnMoney(ctx)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, StateIdle, m.State())
	assertMoney(t, "$5.00", m.LastRefund())
	assertMoney(t, "$0.00", m.Balance())

	res, err = m.ReturnMoney(ctx)
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Equal(t, "no money to return", res.Reason)
}

func TestGuardRejections(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	catalog["Gum"] = Item{Price: *MustParseMoney("0.25"), Stock: 0}

	tests := []struct {
		name    string
		product string
		reason  string
	}{
		{"unknown product", "Sprite", "product 'Sprite' not available"},
		{"sold out", "Gum", "product 'Gum' is out of stock"},
		{"no product", "", "product name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			m := newMachine(t, WithCatalog(catalog))

			_, err := m.InsertCoin(ctx, MustParseMoney("1.00"))
			require.NoError(t, err)

			res, err := m.SelectProduct(ctx, tt.product)
			require.NoError(t, err)
			assert.True(t, res.Rejected())
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, StateHasMoney, m.State())
			assertMoney(t, "$1.00", m.Balance())
		})
	}
}

func TestInvalidCoins(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := newMachine(t)

	res, err := m.InsertCoin(ctx, MustParseMoney("0"))
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Equal(t, "invalid coin amount $0.00", res.Reason)

	res, err = m.InsertCoin(ctx, MustParseMoney("-1"))
	require.NoError(t, err)
	assert.Equal(t, "invalid coin amount $-1.00", res.Reason)

	res, err = m.InsertCoin(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "coin amount is required", res.Reason)

	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.History())
}

func buildMachine(t *testing.T) *statemachine.Machine[State, Event, Till] {
	t.Helper()

	def, err := Definition()
	require.NoError(t, err)

	m, err := statemachine.Build[State, Event](def, Registry(), newTill(DefaultCatalog()))
	require.NoError(t, err)
	m.SetCloner(cloneTill)
	m.SetLogger(nil)

	return m
}

func TestRefusals(t *testing.T) {
	t.Parallel()

	smtest.RunScenario(t, buildMachine, smtest.Scenario[State, Event, Till]{
		Name: "refusals outside the happy path",
		Steps: []smtest.Step[State, Event]{
			smtest.Reject[State](EventSelectProduct, "Coke", "please insert money first"),
			smtest.Reject[State](EventDispense, nil, "cannot dispense - no product selected"),
			smtest.Reject[State](EventReturnMoney, nil, "no money to return"),
			smtest.Accept(EventInsertCoin, MustParseMoney("1.00"), StateHasMoney),
			smtest.Reject[State](EventDispense, nil, "please select a product first"),
			smtest.Accept(EventSelectProduct, "Water", StateIdle),
		},
		Matchers: []smtest.Matcher[State, Event, Till]{
			smtest.StateWasVisited[State, Event, Till](StateDispensing),
			smtest.TransitionWasTaken[State, Event, Till](StateDispensing, StateIdle),
			smtest.ContextSatisfies[State, Event]("one water sold", func(till Till) bool {
				return till.Inventory["Water"].Stock == 14 && till.LastDispensed == "Water"
			}),
		},
	})
}

func TestDispensingRefusals(t *testing.T) {
	t.Parallel()

	def, err := Definition()
	require.NoError(t, err)

	// Without the automatic dispense the machine rests in dispensing.
	def.OnEntry = nil

	ctx := t.Context()
	m := newMachine(t, WithDefinition(def))

	_, err = m.InsertCoin(ctx, MustParseMoney("1.50"))
	require.NoError(t, err)

	res, err := m.SelectProduct(ctx, "Pepsi")
	require.NoError(t, err)
	require.True(t, res.Accepted())
	assert.Equal(t, StateDispensing, m.State())

	for event, reason := range map[string]string{
		"coin":   "please wait, dispensing product",
		"select": "already dispensing a product",
		"return": "cannot return money while dispensing",
	} {
		switch event {
		case "coin":
			res, err = m.InsertCoin(ctx, MustParseMoney("1.00"))
		case "select":
			res, err = m.SelectProduct(ctx, "Coke")
		case "return":
			res, err = m.ReturnMoney(ctx)
		}

		require.NoError(t, err)
		assert.True(t, res.Rejected(), event)
		assert.Equal(t, reason, res.Reason, event)
	}

	res, err = m.Dispense(ctx)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, StateIdle, m.State())

	stock, _ := m.Stock("Pepsi")
	assert.Equal(t, 7, stock)
	assertMoney(t, "$0.00", m.LastChange())
}

func TestInventoryNaturalOrder(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	catalog["Gum 10"] = Item{Price: *MustParseMoney("0.10"), Stock: 1}
	catalog["Gum 2"] = Item{Price: *MustParseMoney("0.20"), Stock: 0}

	m := newMachine(t, WithCatalog(catalog))

	var names []string
	for _, l := range m.Inventory() {
		names = append(names, l.Name)
	}

	assert.Equal(t, []string{"Candy", "Chips", "Coke", "Gum 2", "Gum 10", "Pepsi", "Water"}, names)

	listing := m.Inventory()[3]
	assert.False(t, listing.InStock())
	assert.Equal(t, "Gum 2: $0.20 (stock: 0)", listing.String())
}

func TestCatalogIsCopied(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	m := newMachine(t, WithCatalog(catalog))

	catalog["Coke"] = Item{Price: *MustParseMoney("9.99"), Stock: 0}

	stock, ok := m.Stock("Coke")
	require.True(t, ok)
	assert.Equal(t, 10, stock)

	_, ok = m.Stock("Sprite")
	assert.False(t, ok)
}

func TestConcurrentCoins(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	m := newMachine(t, WithLogger(nil))

	var wg sync.WaitGroup

	for range 50 {
		wg.Go(func() {
			_, err := m.InsertCoin(ctx, MustParseMoney("0.10"))
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	assertMoney(t, "$5.00", m.Balance())
	assert.Equal(t, StateHasMoney, m.State())
	assert.Len(t, m.History(), 50)
}

func TestMoney(t *testing.T) {
	t.Parallel()

	_, err := ParseMoney("one dollar")
	require.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, "$1.50", FormatMoney(MustParseMoney("1.5")))
	assert.Equal(t, "$0.00", FormatMoney(nil))
	assert.Panics(t, func() { MustParseMoney("x") })
}
