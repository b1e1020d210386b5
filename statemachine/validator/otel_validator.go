package validator

import (
	"fmt"

	"github.com/amp-labs/amp-statemachine/statemachine"
)

// spanNamingRule checks that action spans ("action.<rule>") can be told
// apart. Rules are named after their action, so two transitions sharing an
// action and no explicit name produce identical span names.
type spanNamingRule struct{}

func (r *spanNamingRule) Name() string       { return "SpanNaming" }
func (r *spanNamingRule) Severity() Severity { return SeverityWarning }

func (r *spanNamingRule) Check(def *statemachine.Definition) RuleResult {
	var warnings []ValidationWarning

	seen := make(map[string]int)

	for i, tr := range def.Transitions {
		if tr.IsRefusal() || tr.Action == "" {
			continue
		}

		name := tr.Name
		if name == "" {
			name = tr.Action
		}

		if first, dup := seen[name]; dup {
			warnings = append(warnings, ValidationWarning{
				Code: "OTEL_SPAN_NAMING",
				Message: fmt.Sprintf("transitions %d and %d both produce span 'action.%s'; set a name on one of them",
					first, i, name),
				Location: Location{State: tr.From, Event: tr.Event, Index: i},
			})

			continue
		}

		seen[name] = i
	}

	return RuleResult{Warnings: warnings}
}
