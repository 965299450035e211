package autocomplete

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/hubsearch/internal/config"
)

type Styles struct {
	Heading     lipgloss.Style
	Item        lipgloss.Style
	Highlighted lipgloss.Style
	Description lipgloss.Style
	Empty       lipgloss.Style
	Loading     lipgloss.Style
}

func DefaultStyles() Styles {
	return StylesFromColors(config.Default().UI.Colors)
}

// StylesFromColors builds the dropdown styles from the configured palette.
func StylesFromColors(c config.UIColors) Styles {
	return Styles{
		Heading:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Secondary)),
		Item:        lipgloss.NewStyle().Foreground(lipgloss.Color(c.Text)).PaddingLeft(2),
		Highlighted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Primary)).PaddingLeft(1),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color(c.Muted)),
		Empty:       lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(c.Muted)).PaddingLeft(2),
		Loading:     lipgloss.NewStyle().Foreground(lipgloss.Color(c.Accent)).PaddingLeft(2),
	}
}

func (m *Model) SetStyles(s Styles) { m.styles = s }

type rowKind int

const (
	rowHeading rowKind = iota
	rowItem
	rowEmpty
	rowLoading
)

// row is one rendered dropdown line. item indexes the flattened list for
// rowItem and is -1 otherwise.
type row struct {
	kind rowKind
	item int
	text string
	desc string
}

// rows lays out the dropdown below the input. View and mouse hit-testing
// both derive from it so a click always lands on what was drawn.
func (m *Model) rows() []row {
	var out []row
	s := m.state

	if s.IsOpen {
		if s.Suggestions.Total() == 0 && !s.IsLoading {
			out = append(out, row{kind: rowEmpty, item: -1, text: fmt.Sprintf("No results found for %q", m.resultsFor)})
		}
		idx := 0
		for _, g := range s.Suggestions.Groups() {
			out = append(out, row{kind: rowHeading, item: -1, text: g.Kind.Label()})
			for _, it := range g.Items {
				out = append(out, row{kind: rowItem, item: idx, text: it.Label(), desc: it.Description})
				idx++
			}
		}
	}

	if s.IsLoading && !s.dismissed {
		out = append(out, row{kind: rowLoading, item: -1, text: "Searching..."})
	}
	return out
}

// Height is the number of terminal lines View occupies.
func (m *Model) Height() int {
	return 1 + len(m.rows())
}

// SetWidth constrains the input and dropdown width.
func (m *Model) SetWidth(w int) {
	m.width = w
	inputWidth := w - lipgloss.Width(m.input.Prompt) - 1
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())

	for _, r := range m.rows() {
		b.WriteString("\n")
		b.WriteString(m.renderRow(r))
	}
	return b.String()
}

func (m *Model) renderRow(r row) string {
	var line string
	switch r.kind {
	case rowHeading:
		line = m.styles.Heading.Render(r.text)
	case rowEmpty:
		line = m.styles.Empty.Render(r.text)
	case rowLoading:
		line = m.styles.Loading.Render(r.text)
	case rowItem:
		text := r.text
		if r.desc != "" {
			text += "  " + m.styles.Description.Render(firstLine(r.desc))
		}
		if r.item == m.state.HighlightIndex {
			line = m.styles.Highlighted.Render("▸ " + text)
		} else {
			line = m.styles.Item.Render(text)
		}
	}
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
