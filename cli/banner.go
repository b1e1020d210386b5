package cli

import (
	"strings"
	"unicode/utf8"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"

	bannerPadding  = 2
	dividerPadding = 2
)

// DefaultWidth is the banner width used by the demo narration.
const DefaultWidth = 60

// Divider returns a horizontal rule of the given width, newline terminated.
func Divider(width int) string {
	if width < dividerPadding {
		width = dividerPadding
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-dividerPadding) + dividerRight + "\n"
}

// Banner boxes each line of s, left aligned. Lines longer than the box are
// not truncated; the box grows to fit them.
func Banner(s string, width int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")

	inner := width - bannerPadding
	for _, line := range lines {
		if n := utf8.RuneCountInString(line) + bannerPadding; n > inner {
			inner = n
		}
	}

	var sb strings.Builder

	sb.WriteString(boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight + "\n")

	for _, line := range lines {
		pad := inner - utf8.RuneCountInString(line) - 1
		sb.WriteString(boxSide + " " + line + strings.Repeat(" ", pad) + boxSide + "\n")
	}

	sb.WriteString(boxBottomLeft + strings.Repeat(boxBottom, inner) + boxBottomRight + "\n")

	return sb.String()
}
