package tui

import "github.com/charmbracelet/x/ansi"

const ellipsis = "…"

// truncateEnd fits s into width terminal cells, ending in an ellipsis when
// it had to cut.
func truncateEnd(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, ellipsis)
}

// truncateMiddle keeps the start and end of s around a single ellipsis.
// Used for URLs, where the host and the id both matter.
func truncateMiddle(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := ansi.StringWidth(s)
	if w <= width {
		return s
	}
	if width == 1 {
		return ellipsis
	}
	left := (width - 1) / 2
	right := width - 1 - left
	return ansi.Truncate(s, left, "") + ellipsis + ansi.TruncateLeft(s, w-right, "")
}
