// Package visualizer generates Mermaid diagrams from state machine definitions.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-statemachine/statemachine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrDefinitionNil  = errors.New("definition cannot be nil")
	ErrNoInitialState = errors.New("definition must have an initial state")
)

type palette struct {
	terminal, highlighted, auto string
}

var themes = map[string]palette{ //nolint:gochecknoglobals
	"default": {
		terminal:    "fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px",
		highlighted: "fill:#fff9c4,stroke:#f57f17,stroke-width:3px",
		auto:        "fill:#e1f5ff,stroke:#01579b,stroke-width:2px",
	},
	"dark": {
		terminal:    "fill:#1b5e20,stroke:#a5d6a7,color:#ffffff",
		highlighted: "fill:#f57f17,stroke:#fff9c4,color:#000000",
		auto:        "fill:#01579b,stroke:#e1f5ff,color:#ffffff",
	},
}

// DisplayName turns an identifier like "pending_review" into "Pending Review".
func DisplayName(id string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(id))

	return cases.Title(language.English).String(strings.Join(words, " "))
}

// GenerateMermaid converts a Definition to a Mermaid state diagram.
func GenerateMermaid(def *statemachine.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidFromFile loads a definition and renders it.
func GenerateMermaidFromFile(path string) (string, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaid(def)
}

// GenerateMermaidForMachine renders the table of a programmatic machine.
func GenerateMermaidForMachine[S, E comparable, C any](m *statemachine.Machine[S, E, C], opts Options) (string, error) {
	return GenerateMermaidWithOptions(statemachine.Describe(m), opts)
}

// GenerateMermaidWithOptions converts a Definition to a Mermaid state diagram.
func GenerateMermaidWithOptions(def *statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	if def.InitialState == "" {
		return "", ErrNoInitialState
	}

	colors, ok := themes[opts.Theme]
	if !ok {
		colors = themes["default"]
	}

	// Mermaid state diagrams spell top-down as TB.
	direction := opts.Direction
	if direction == "" || direction == "TD" {
		direction = "TB"
	}

	highlight := make(map[string]bool, len(opts.HighlightPath))
	for _, s := range opts.HighlightPath {
		highlight[s] = true
	}

	auto := make(map[string]string, len(def.OnEntry))
	for _, oe := range def.OnEntry {
		auto[oe.State] = oe.Event
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	fmt.Fprintf(&sb, "stateDiagram-v2\n    direction %s\n", direction)

	if def.Description != "" {
		fmt.Fprintf(&sb, "    %%%% %s\n", def.Description)
	}

	if opts.DisplayNames {
		for _, state := range def.States {
			fmt.Fprintf(&sb, "    %s: %s\n", state, DisplayName(state))
		}
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", def.InitialState)

	for _, state := range def.States {
		var refusals []string

		for _, t := range def.Transitions {
			if t.From != state {
				continue
			}

			if t.IsRefusal() {
				refusals = append(refusals, fmt.Sprintf("%s: %s", t.Event, t.Refuse))

				continue
			}

			fmt.Fprintf(&sb, "    %s --> %s: %s\n", t.From, t.To, transitionLabel(t, auto, opts))
		}

		if opts.ShowRefusals && len(refusals) > 0 {
			fmt.Fprintf(&sb, "    note right of %s\n", state)

			for _, r := range refusals {
				fmt.Fprintf(&sb, "        %s\n", r)
			}

			sb.WriteString("    end note\n")
		}

		if def.IsTerminal(state) {
			fmt.Fprintf(&sb, "    %s --> [*]\n", state)
		}

		switch {
		case highlight[state]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", state)
		case def.IsTerminal(state):
			fmt.Fprintf(&sb, "    class %s terminalState\n", state)
		case auto[state] != "":
			fmt.Fprintf(&sb, "    class %s autoState\n", state)
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    classDef terminalState %s\n", colors.terminal)
	fmt.Fprintf(&sb, "    classDef highlighted %s\n", colors.highlighted)
	fmt.Fprintf(&sb, "    classDef autoState %s\n", colors.auto)

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func transitionLabel(t statemachine.TransitionConfig, auto map[string]string, opts Options) string {
	label := t.Event
	if auto[t.From] == t.Event {
		label += " (auto)"
	}

	if !opts.ShowGuards {
		return label
	}

	if t.Guard != "" {
		label += " [" + t.Guard + "]"
	}

	if t.Action != "" {
		label += " / " + t.Action
	}

	return label
}
