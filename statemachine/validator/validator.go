// Package validator performs static analysis of state machine definitions.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/amp-labs/amp-statemachine/statemachine"
)

// ValidationResult contains the results of validating a definition.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string // like "UNREACHABLE_STATE", "DEAD_END_STATE"
	Message  string
	Location Location
	Fix      *Fix
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string
	Example string
}

// Location identifies where an issue occurred.
type Location struct {
	File  string
	State string
	Event string
	Index int // transition index, -1 when not applicable
}

// Validate runs the default rules against def.
func Validate(def *statemachine.Definition) ValidationResult {
	return ValidateWithRules(def, DefaultRules())
}

// ValidateMachine describes a programmatic machine and validates it.
func ValidateMachine[S, E comparable, C any](m *statemachine.Machine[S, E, C]) ValidationResult {
	return Validate(statemachine.Describe(m))
}

// ValidateFile loads a definition from path and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads a definition from path and treats warnings as errors.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return ValidationResult{
			Errors: []ValidationError{{
				Code:     "DEFINITION_LOAD_FAILED",
				Message:  fmt.Sprintf("failed to load definition: %v", err),
				Location: Location{File: path, Index: -1},
			}},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(def, DefaultRules())
	} else {
		result = Validate(def)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules plus any registered ones.
func ValidateWithRules(def *statemachine.Definition, rules []Rule) ValidationResult {
	var result ValidationResult

	for _, rule := range slices.Concat(rules, registeredRules()) {
		ruleResult := rule.Check(def)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	result.Valid = len(result.Errors) == 0
	result.Suggestions = generateSuggestions(def)

	return result
}

// ValidateWithRulesStrict is ValidateWithRules with warnings promoted to errors.
func ValidateWithRulesStrict(def *statemachine.Definition, rules []Rule) ValidationResult {
	result := ValidateWithRules(def, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil
	result.Valid = len(result.Errors) == 0

	return result
}

func generateSuggestions(def *statemachine.Definition) []Suggestion {
	var suggestions []Suggestion

	if def.Description == "" && len(def.States) > 2 {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider adding a description; it is used as the diagram title",
			Example: `name: vending
description: Coin-operated vending machine`,
		})
	}

	refusals := 0

	for _, t := range def.Transitions {
		if t.IsRefusal() {
			refusals++
		}
	}

	if refusals == 0 && len(def.Transitions) > 0 {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider refusing unsupported events with a message instead of the generic rejection",
			Example: `transitions:
  - from: published
    event: edit
    refuse: cannot edit published document`,
		})
	}

	return suggestions
}

func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Codes returns the error codes followed by the warning codes.
func (r ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}

	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}

	return codes
}

// String returns a human-readable summary.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("OK: definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "FAIL: definition has %d error(s)\n", len(r.Errors))
	}

	for _, err := range r.Errors {
		fmt.Fprintf(&sb, "  [%s] %s\n", err.Code, err.Message)

		if err.Fix != nil {
			fmt.Fprintf(&sb, "    fix: %s\n", err.Fix.Description)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "%d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "%d suggestion(s) for improvement\n", len(r.Suggestions))
	}

	return sb.String()
}
