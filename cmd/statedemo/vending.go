package main

import (
	"context"
	"errors"

	"github.com/amp-labs/amp-statemachine/cli"
	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/vending"
	"github.com/manifoldco/promptui"
)

const (
	actionInsertCoin = "Insert coin"
	actionSelect     = "Select product"
	actionReturn     = "Return money"
	actionInventory  = "Show inventory"
	actionQuit       = "Quit"
)

func (d *demo) vending(ctx context.Context) error {
	d.banner("Vending Machine")

	def, err := d.checkDefinition(definitions.Vending)
	if err != nil {
		return err
	}

	machine, err := vending.New(vending.WithDefinition(def))
	if err != nil {
		return err
	}

	if d.cfg.Mode == modeInteractive {
		err = d.vendingInteractive(ctx, machine)
	} else {
		err = d.vendingScript(ctx, machine)
	}

	if err != nil {
		return err
	}

	return d.diagram(def, visited(vending.StateIdle, machine.History()))
}

func (d *demo) vendingScript(ctx context.Context, m *vending.Machine) error {
	d.inventory(m)

	steps := []func() error{
		func() error { return d.sell(ctx, m, "Coke") },
		func() error { return d.insert(ctx, m, "1.00") },
		func() error { return d.insert(ctx, m, "0.50") },
		func() error { return d.sell(ctx, m, "Coke") },
		func() error { d.divider(); return nil },
		func() error { return d.insert(ctx, m, "0.50") },
		func() error { return d.sell(ctx, m, "Chips") },
		func() error { return d.insert(ctx, m, "2.00") },
		func() error { return d.sell(ctx, m, "Chips") },
		func() error { d.divider(); return nil },
		func() error { return d.insert(ctx, m, "5.00") },
		func() error { return d.refund(ctx, m) },
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	d.inventory(m)

	return nil
}

func (d *demo) insert(ctx context.Context, m *vending.Machine, amount string) error {
	coin, err := vending.ParseMoney(amount)
	if err != nil {
		return err
	}

	d.printf("💵 Inserting %s\n", vending.FormatMoney(coin))

	res, err := m.InsertCoin(ctx, coin)
	if err = narrate(d, res, err); err != nil {
		return err
	}

	d.printf("💰 Balance: %s\n", vending.FormatMoney(m.Balance()))

	return nil
}

func (d *demo) sell(ctx context.Context, m *vending.Machine, product string) error {
	res, err := m.SelectProduct(ctx, product)
	if err = narrate(d, res, err); err != nil {
		return err
	}

	if res.Accepted() {
		d.printf("🎁 Enjoy your %s! Change: %s\n", product, vending.FormatMoney(m.LastChange()))
	}

	return nil
}

func (d *demo) refund(ctx context.Context, m *vending.Machine) error {
	res, err := m.ReturnMoney(ctx)
	if err = narrate(d, res, err); err != nil {
		return err
	}

	if res.Accepted() {
		d.printf("💵 Returned %s\n", vending.FormatMoney(m.LastRefund()))
	}

	return nil
}

func (d *demo) inventory(m *vending.Machine) {
	d.print("\n📦 Inventory:\n")

	for _, l := range m.Inventory() {
		status := "✅"
		if !l.InStock() {
			status = "❌"
		}

		d.printf("  %s %s\n", status, l)
	}

	d.print("\n")
}

func (d *demo) vendingInteractive(ctx context.Context, m *vending.Machine) error {
	d.inventory(m)

	for ctx.Err() == nil {
		d.printf("State: %s, balance: %s\n", m.State(), vending.FormatMoney(m.Balance()))

		choice, err := cli.Select("What next?",
			actionInsertCoin, actionSelect, actionReturn, actionInventory, actionQuit)
		if err != nil {
			return ignoreInterrupt(err)
		}

		switch choice {
		case actionInsertCoin:
			amount, err := cli.PromptString("Amount", func(s string) error {
				_, err := vending.ParseMoney(s)

				return err
			})
			if err != nil {
				return ignoreInterrupt(err)
			}

			err = d.insert(ctx, m, amount)
			if err != nil {
				return err
			}
		case actionSelect:
			var names []string
			for _, l := range m.Inventory() {
				names = append(names, l.Name)
			}

			product, err := cli.Select("Product", names...)
			if err != nil {
				return ignoreInterrupt(err)
			}

			if err := d.sell(ctx, m, product); err != nil {
				return err
			}
		case actionReturn:
			if err := d.refund(ctx, m); err != nil {
				return err
			}
		case actionInventory:
			d.inventory(m)
		case actionQuit:
			return nil
		}
	}

	return nil
}

// ignoreInterrupt treats Ctrl-C and Ctrl-D at a prompt as quitting.
func ignoreInterrupt(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return nil
	}

	return err
}
