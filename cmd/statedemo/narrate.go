package main

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-statemachine/cli"
	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/amp-labs/amp-statemachine/statemachine/validator"
	"github.com/amp-labs/amp-statemachine/statemachine/visualizer"
)

func (d *demo) banner(title string) {
	d.print("\n" + cli.Banner(title, cli.DefaultWidth))
}

func (d *demo) divider() {
	d.print("\n" + cli.Divider(cli.DefaultWidth) + "\n")
}

// narrate prints one line per Fire call and returns the error unchanged.
func narrate[S, E comparable](d *demo, res statemachine.Result[S, E], err error) error {
	event := display(res.Event)

	switch {
	case err != nil:
		d.printf("💥 %s failed in %s: %v\n", event, display(res.From), err)
	case res.Rejected():
		d.printf("❌ %s refused in %s: %s\n", event, display(res.From), res.Reason)
	default:
		d.printf("✅ %s: %s\n", event, pathString(res.Path))
	}

	return err
}

func display(v any) string {
	return visualizer.DisplayName(fmt.Sprint(v))
}

func pathString[S comparable](path []S) string {
	names := make([]string, len(path))
	for i, s := range path {
		names[i] = display(s)
	}

	return strings.Join(names, " -> ")
}

// visited lists every state a history passes through, starting with initial.
func visited[S, E comparable](initial S, history []statemachine.Transition[S, E]) []string {
	seen := map[string]bool{fmt.Sprint(initial): true}
	path := []string{fmt.Sprint(initial)}

	for _, tr := range history {
		name := fmt.Sprint(tr.To)
		if !seen[name] {
			seen[name] = true
			path = append(path, name)
		}
	}

	return path
}

// checkDefinition loads a definition by name through the installed loader
// and refuses to run tables with validation errors.
func (d *demo) checkDefinition(name string) (*statemachine.Definition, error) {
	def, err := statemachine.LoadDefinition(name)
	if err != nil {
		return nil, err
	}

	result := validator.Validate(def)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", statemachine.ErrInvalidDefinition, result.String())
	}

	fingerprint, err := def.Fingerprint()
	if err != nil {
		return nil, err
	}

	d.printf("📋 %s: %d states, %d rules, %d warnings (table %s)\n",
		def.Name, len(def.States), len(def.Transitions), len(result.Warnings), fingerprint)

	return def, nil
}

func (d *demo) diagram(def *statemachine.Definition, path []string) error {
	if !d.cfg.Diagram {
		return nil
	}

	out, err := visualizer.GenerateMermaidWithOptions(def, visualizer.DefaultOptions().
		WithShowRefusals(true).
		WithHighlightPath(path))
	if err != nil {
		return err
	}

	d.print("\n" + out + "\n")

	return nil
}
