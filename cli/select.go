package cli

import (
	"strings"

	"github.com/manifoldco/promptui"
)

// Select shows a single-choice menu and returns the chosen item. Typing
// filters items by prefix (case-insensitive).
func Select(label string, choices ...string) (string, error) {
	if len(choices) == 0 {
		return "", nil
	}

	sel := &promptui.Select{
		Label: label,
		Items: choices,
		Size:  len(choices),
		Searcher: func(input string, index int) bool {
			if input == "" {
				return true
			}

			return strings.HasPrefix(strings.ToLower(choices[index]), strings.ToLower(input))
		},
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	return value, nil
}
