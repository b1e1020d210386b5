// Package definitions embeds the transition tables shipped with this module.
package definitions

import (
	"embed"

	"github.com/amp-labs/amp-statemachine/statemachine"
)

const (
	Vending  = "vending"
	Workflow = "workflow"
)

//go:embed *.yaml
var files embed.FS

// FS exposes the embedded YAML files.
func FS() embed.FS {
	return files
}

// Loader serves the embedded definitions by name. Install it with
// statemachine.SetDefinitionLoader to make LoadDefinition("vending") work.
func Loader() *statemachine.FSLoader {
	return statemachine.NewFSLoader(files, ".")
}

// Load parses the embedded definition called name.
func Load(name string) (*statemachine.Definition, error) {
	return statemachine.LoadDefinitionFromFS(files, name+".yaml")
}
