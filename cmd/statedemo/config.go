package main

import (
	"context"

	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/envutil"
)

const (
	appName = "statedemo"

	modeScript      = "script"
	modeInteractive = "interactive"

	machineAll = "all"
)

type config struct {
	// Mode is DEMO_MODE: "script" replays the narrated scenarios,
	// "interactive" drives a machine from prompts.
	Mode string
	// Machine is DEMO_MACHINE: "vending", "workflow" or "all".
	Machine string
	// Diagram is DEMO_DIAGRAM: print a Mermaid diagram after each run.
	Diagram bool
}

func loadConfig(ctx context.Context) (*config, error) {
	mode, err := envutil.String(ctx, "DEMO_MODE",
		envutil.Default(modeScript),
		envutil.OneOf(modeScript, modeInteractive)).Value()
	if err != nil {
		return nil, err
	}

	machine, err := envutil.String(ctx, "DEMO_MACHINE",
		envutil.Default(machineAll),
		envutil.OneOf(definitions.Vending, definitions.Workflow, machineAll)).Value()
	if err != nil {
		return nil, err
	}

	diagram, err := envutil.Bool(ctx, "DEMO_DIAGRAM", envutil.Default(false)).Value()
	if err != nil {
		return nil, err
	}

	return &config{Mode: mode, Machine: machine, Diagram: diagram}, nil
}

func (c *config) runs(name string) bool {
	return c.Machine == machineAll || c.Machine == name
}
