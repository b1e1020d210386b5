package statemachine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"

	errs "github.com/amp-labs/amp-statemachine/errors"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

var (
	ErrNameRequired         = errors.New("definition name is required")
	ErrInitialStateRequired = errors.New("initial state is required")
	ErrStateRequired        = errors.New("at least one state is required")
	ErrDuplicateState       = errors.New("duplicate state")
	ErrDuplicateEvent       = errors.New("duplicate event")
	ErrUnknownState         = errors.New("unknown state")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrTargetRequired       = errors.New("transition needs either 'to' or 'refuse'")
	ErrRefusalWithTarget    = errors.New("refusal cannot have 'to', 'guard' or 'action'")
)

// DefinitionLoader resolves bare definition names to YAML documents.
// Applications implement it to serve embedded definitions.
type DefinitionLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	loaderMu      sync.RWMutex     //nolint:gochecknoglobals
	defaultLoader DefinitionLoader //nolint:gochecknoglobals
)

// SetDefinitionLoader sets the loader used by LoadDefinition for bare names.
func SetDefinitionLoader(loader DefinitionLoader) {
	loaderMu.Lock()
	defer loaderMu.Unlock()

	defaultLoader = loader
}

func getDefinitionLoader() DefinitionLoader {
	loaderMu.RLock()
	defer loaderMu.RUnlock()

	return defaultLoader
}

// Definition is the declarative form of a transition table.
type Definition struct {
	Name           string             `json:"name"                     yaml:"name"`
	Description    string             `json:"description,omitempty"    yaml:"description,omitempty"`
	InitialState   string             `json:"initialState"             yaml:"initialState"`
	TerminalStates []string           `json:"terminalStates,omitempty" yaml:"terminalStates,omitempty"`
	States         []string           `json:"states"                   yaml:"states"`
	Events         []string           `json:"events"                   yaml:"events"`
	OnEntry        []OnEntryConfig    `json:"onEntry,omitempty"        yaml:"onEntry,omitempty"`
	Transitions    []TransitionConfig `json:"transitions"              yaml:"transitions"`
}

// OnEntryConfig declares an event fired automatically on entering State.
type OnEntryConfig struct {
	State string `json:"state" yaml:"state"`
	Event string `json:"event" yaml:"event"`
}

// TransitionConfig is one rule. Exactly one of To or Refuse is set; Guard and
// Action name entries in a Registry.
type TransitionConfig struct {
	Name   string `json:"name,omitempty"   yaml:"name,omitempty"`
	From   string `json:"from"             yaml:"from"`
	Event  string `json:"event"            yaml:"event"`
	To     string `json:"to,omitempty"     yaml:"to,omitempty"`
	Guard  string `json:"guard,omitempty"  yaml:"guard,omitempty"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
	Refuse string `json:"refuse,omitempty" yaml:"refuse,omitempty"`
}

func (t TransitionConfig) IsRefusal() bool {
	return t.Refuse != ""
}

// LoadDefinition loads a definition by path or by name.
//   - Path mode: anything containing a path separator or ending in .yaml/.yml
//     is read from the filesystem.
//   - Name mode: bare names go through the loader set with SetDefinitionLoader.
func LoadDefinition(pathOrName string) (*Definition, error) {
	lower := strings.ToLower(pathOrName)
	isPath := strings.ContainsAny(pathOrName, `/\`) ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml")

	if isPath {
		data, err := os.ReadFile(pathOrName) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("failed to read definition file %q: %w", pathOrName, err)
		}

		return LoadDefinitionFromBytes(data)
	}

	loader := getDefinitionLoader()
	if loader == nil {
		return nil, fmt.Errorf("%w: use SetDefinitionLoader or pass a file path", ErrNoLoader)
	}

	data, err := loader.LoadByName(pathOrName)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %q (available: %v): %w",
			pathOrName, loader.ListAvailable(), err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes parses and validates a YAML definition.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var def Definition

	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// LoadDefinitionFromFS loads a definition from fsys, typically an embed.FS.
func LoadDefinitionFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// FSLoader serves definitions named <name>.yaml from a directory of fsys.
type FSLoader struct {
	fsys fs.FS
	dir  string
}

func NewFSLoader(fsys fs.FS, dir string) *FSLoader {
	return &FSLoader{fsys: fsys, dir: dir}
}

func (l *FSLoader) LoadByName(name string) ([]byte, error) {
	return fs.ReadFile(l.fsys, l.path(name+".yaml"))
}

func (l *FSLoader) ListAvailable() []string {
	matches, err := fs.Glob(l.fsys, l.path("*.yaml"))
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := m[strings.LastIndex(m, "/")+1:]
		names = append(names, strings.TrimSuffix(base, ".yaml"))
	}

	return names
}

func (l *FSLoader) path(file string) string {
	if l.dir == "" || l.dir == "." {
		return file
	}

	return l.dir + "/" + file
}

// Validate reports every structural problem in the definition at once.
func (d *Definition) Validate() error {
	var problems errs.Collection

	if d.Name == "" {
		problems.Add(ErrNameRequired)
	}

	if len(d.States) == 0 {
		problems.Add(ErrStateRequired)
	}

	states := make(map[string]bool, len(d.States))
	for _, s := range d.States {
		if states[s] {
			problems.Addf(ErrDuplicateState, "%q", s)
		}

		states[s] = true
	}

	events := make(map[string]bool, len(d.Events))
	for _, e := range d.Events {
		if events[e] {
			problems.Addf(ErrDuplicateEvent, "%q", e)
		}

		events[e] = true
	}

	switch {
	case d.InitialState == "":
		problems.Add(ErrInitialStateRequired)
	case !states[d.InitialState]:
		problems.Addf(ErrUnknownState, "initial state %q", d.InitialState)
	}

	for _, s := range d.TerminalStates {
		if !states[s] {
			problems.Addf(ErrUnknownState, "terminal state %q", s)
		}
	}

	seen := make(map[[2]string]bool, len(d.Transitions))

	for i, t := range d.Transitions {
		where := fmt.Sprintf("transition %d (%s, %s)", i, t.From, t.Event)

		if !states[t.From] {
			problems.Addf(ErrUnknownState, "%s: from %q", where, t.From)
		}

		if !events[t.Event] {
			problems.Addf(ErrUnknownEvent, "%s: event %q", where, t.Event)
		}

		key := [2]string{t.From, t.Event}
		if seen[key] {
			problems.Addf(ErrDuplicateRule, "%s", where)
		}

		seen[key] = true

		switch {
		case t.IsRefusal() && (t.To != "" || t.Guard != "" || t.Action != ""):
			problems.Addf(ErrRefusalWithTarget, "%s", where)
		case !t.IsRefusal() && t.To == "":
			problems.Addf(ErrTargetRequired, "%s", where)
		case !t.IsRefusal() && !states[t.To]:
			problems.Addf(ErrUnknownState, "%s: to %q", where, t.To)
		}
	}

	entries := make(map[string]bool, len(d.OnEntry))
	for _, oe := range d.OnEntry {
		if !states[oe.State] {
			problems.Addf(ErrUnknownState, "on-entry state %q", oe.State)
		}

		if !events[oe.Event] {
			problems.Addf(ErrUnknownEvent, "on-entry event %q", oe.Event)
		}

		if entries[oe.State] {
			problems.Addf(ErrDuplicateOnEntry, "state %q", oe.State)
		}

		entries[oe.State] = true
	}

	if problems.HasError() {
		return fmt.Errorf("%w %q: %w", ErrInvalidDefinition, d.Name, problems.GetError())
	}

	return nil
}

// IsTerminal reports whether state is declared terminal.
func (d *Definition) IsTerminal(state string) bool {
	return slices.Contains(d.TerminalStates, state)
}

// Fingerprint returns a stable hash of the canonical YAML form, so two
// revisions of a table can be told apart in logs.
func (d *Definition) Fingerprint() (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal definition: %w", err)
	}

	return fmt.Sprintf("%016x", xxh3.Hash(data)), nil
}

// Marshal renders the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}
