package autocomplete

import (
	tea "github.com/charmbracelet/bubbletea"
)

// SetOrigin records where the parent drew View, in screen cells. The origin
// is the boundary used to tell clicks on the control from clicks elsewhere.
func (m *Model) SetOrigin(x, y int) {
	m.originX, m.originY = x, y
}

// Contains reports whether the screen cell lies within the rendered control.
func (m *Model) Contains(x, y int) bool {
	col, line := x-m.originX, y-m.originY
	if line < 0 || line >= m.Height() || col < 0 {
		return false
	}
	return m.width <= 0 || col < m.width
}

// HandleMouse closes the dropdown on a click outside the control and selects
// the row under a click inside it. handled is true only when the click
// landed on the control.
func (m *Model) HandleMouse(msg tea.MouseMsg) (handled bool, cmd tea.Cmd) {
	if !m.mounted {
		return false, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return false, nil
	}

	if !m.Contains(msg.X, msg.Y) {
		if m.state.IsOpen || m.state.pending() {
			m.Dismiss()
		}
		return false, nil
	}

	line := msg.Y - m.originY
	if line == 0 {
		return true, m.input.Focus()
	}
	rows := m.rows()
	if r := rows[line-1]; r.kind == rowItem {
		return true, m.Select(r.item)
	}
	return true, nil
}
