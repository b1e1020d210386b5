package visualizer

// Options configures the diagram output.
type Options struct {
	// ShowGuards appends [guard] / action names to transition labels.
	ShowGuards bool

	// ShowRefusals lists refused events and their messages in a note per state.
	ShowRefusals bool

	// DisplayNames labels states with title-cased names ("has_money" -> "Has Money").
	DisplayNames bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right).
	Direction string

	// HighlightPath highlights the states of a path through the diagram.
	HighlightPath []string

	// Theme selects the class colors: "default" or "dark".
	Theme string

	// Fenced wraps the diagram in a ```mermaid code fence.
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowGuards:   true,
		ShowRefusals: false,
		DisplayNames: true,
		Direction:    "TD",
		Theme:        "default",
		Fenced:       true,
	}
}

func (o Options) WithShowGuards(show bool) Options {
	o.ShowGuards = show

	return o
}

func (o Options) WithShowRefusals(show bool) Options {
	o.ShowRefusals = show

	return o
}

func (o Options) WithDisplayNames(show bool) Options {
	o.DisplayNames = show

	return o
}

func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}

func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}
