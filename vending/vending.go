// Package vending implements a coin-operated vending machine on top of the
// statemachine engine. The transition table lives in definitions/vending.yaml;
// this package supplies the guards, actions and a goroutine-safe facade.
package vending

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-statemachine/logger"
	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/cockroachdb/apd/v3"
)

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateHasMoney   State = "has_money"
	StateDispensing State = "dispensing"

	EventInsertCoin    Event = "insert_coin"
	EventSelectProduct Event = "select_product"
	EventDispense      Event = "dispense"
	EventReturnMoney   Event = "return_money"
)

// Item is one inventory slot.
type Item struct {
	Price apd.Decimal
	Stock int
}

// Till is the machine context: the running balance, the current selection
// and the inventory, plus the outcome of the last purchase or refund.
type Till struct {
	Balance       apd.Decimal
	Selected      string
	Inventory     map[string]*Item
	LastChange    apd.Decimal
	LastRefund    apd.Decimal
	LastDispensed string
}

func cloneTill(t Till) Till {
	out := Till{
		Selected:      t.Selected,
		LastDispensed: t.LastDispensed,
		Inventory:     make(map[string]*Item, len(t.Inventory)),
	}

	out.Balance.Set(&t.Balance)
	out.LastChange.Set(&t.LastChange)
	out.LastRefund.Set(&t.LastRefund)

	for name, item := range t.Inventory {
		cp := &Item{Stock: item.Stock}
		cp.Price.Set(&item.Price)
		out.Inventory[name] = cp
	}

	return out
}

// Catalog maps product names to a price and a count.
type Catalog map[string]Item

// DefaultCatalog returns the factory inventory.
func DefaultCatalog() Catalog {
	return Catalog{
		"Coke":  {Price: *MustParseMoney("1.50"), Stock: 10}, //nolint:mnd
		"Pepsi": {Price: *MustParseMoney("1.50"), Stock: 8},  //nolint:mnd
		"Water": {Price: *MustParseMoney("1.00"), Stock: 15}, //nolint:mnd
		"Chips": {Price: *MustParseMoney("2.00"), Stock: 12}, //nolint:mnd
		"Candy": {Price: *MustParseMoney("1.25"), Stock: 20}, //nolint:mnd
	}
}

func newTill(catalog Catalog) Till {
	till := Till{Inventory: make(map[string]*Item, len(catalog))}

	for name, item := range catalog {
		cp := &Item{Stock: item.Stock}
		cp.Price.Set(&item.Price)
		till.Inventory[name] = cp
	}

	return till
}

// Registry returns the guards and actions vending.yaml refers to.
func Registry() *statemachine.Registry[Till] {
	return statemachine.NewRegistry[Till]().
		RegisterGuard("positive_amount", positiveAmount).
		RegisterGuard("can_purchase", canPurchase).
		RegisterGuard("selection_in_stock", selectionInStock).
		RegisterAction("add_money", addMoney).
		RegisterAction("select_product", selectProduct).
		RegisterAction("dispense_product", dispenseProduct).
		RegisterAction("refund", refund)
}

func amountOf(payload any) (*apd.Decimal, bool) {
	amount, ok := payload.(*apd.Decimal)

	return amount, ok && amount != nil
}

func positiveAmount(_ context.Context, _ *Till, payload any) (bool, string) {
	amount, ok := amountOf(payload)
	if !ok {
		return false, "coin amount is required"
	}

	if amount.Sign() <= 0 {
		return false, "invalid coin amount " + FormatMoney(amount)
	}

	return true, ""
}

func addMoney(ctx context.Context, till *Till, payload any) error {
	amount, _ := amountOf(payload)

	if _, err := money.Add(&till.Balance, &till.Balance, amount); err != nil {
		return fmt.Errorf("failed to add %s to balance: %w", FormatMoney(amount), err)
	}

	logger.Get(ctx).Debug("coin inserted",
		"amount", FormatMoney(amount),
		"balance", FormatMoney(&till.Balance))

	return nil
}

func canPurchase(_ context.Context, till *Till, payload any) (bool, string) {
	product, ok := payload.(string)
	if !ok || product == "" {
		return false, "product name is required"
	}

	item, ok := till.Inventory[product]
	if !ok {
		return false, fmt.Sprintf("product '%s' not available", product)
	}

	if item.Stock <= 0 {
		return false, fmt.Sprintf("product '%s' is out of stock", product)
	}

	if till.Balance.Cmp(&item.Price) < 0 {
		return false, fmt.Sprintf("insufficient funds: need %s, have %s",
			FormatMoney(&item.Price), FormatMoney(&till.Balance))
	}

	return true, ""
}

func selectProduct(ctx context.Context, till *Till, payload any) error {
	till.Selected, _ = payload.(string)

	logger.Get(ctx).Debug("product selected", "product", till.Selected)

	return nil
}

func selectionInStock(_ context.Context, till *Till, _ any) (bool, string) {
	item, ok := till.Inventory[till.Selected]
	if !ok {
		return false, "cannot dispense - no product selected"
	}

	if item.Stock <= 0 {
		return false, fmt.Sprintf("product '%s' is out of stock", till.Selected)
	}

	return true, ""
}

func dispenseProduct(ctx context.Context, till *Till, _ any) error {
	item := till.Inventory[till.Selected]

	if _, err := money.Sub(&till.LastChange, &till.Balance, &item.Price); err != nil {
		return fmt.Errorf("failed to compute change for %s: %w", till.Selected, err)
	}

	item.Stock--
	till.Balance.SetInt64(0)
	till.LastDispensed = till.Selected
	till.Selected = ""

	logger.Get(ctx).Debug("product dispensed",
		"product", till.LastDispensed,
		"change", FormatMoney(&till.LastChange),
		"remaining", item.Stock)

	return nil
}

func refund(ctx context.Context, till *Till, _ any) error {
	till.LastRefund.Set(&till.Balance)
	till.Balance.SetInt64(0)

	logger.Get(ctx).Debug("money returned", "amount", FormatMoney(&till.LastRefund))

	return nil
}
