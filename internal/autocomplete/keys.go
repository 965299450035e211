package autocomplete

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap is the set of keys the dropdown reacts to.
type KeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Accept key.Binding
	Close  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "next suggestion"),
		),
		Prev: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "previous suggestion"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open / search"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close suggestions"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Accept, k.Close}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func (m *Model) KeyMap() KeyMap { return m.keys }

// HandleKey applies dropdown navigation. handled is false when the key
// should reach the text input (or the parent) untouched.
func (m *Model) HandleKey(msg tea.KeyMsg) (handled bool, cmd tea.Cmd) {
	if !m.mounted {
		return false, nil
	}

	flat := m.state.Flattened()
	n := len(flat)
	navigable := m.state.IsOpen && n > 0

	switch {
	case key.Matches(msg, m.keys.Next):
		if !navigable {
			return false, nil
		}
		m.state.HighlightIndex = (m.state.HighlightIndex + 1) % n
		return true, nil

	case key.Matches(msg, m.keys.Prev):
		if !navigable {
			return false, nil
		}
		if m.state.HighlightIndex < 0 {
			m.state.HighlightIndex = n - 1
		} else {
			m.state.HighlightIndex = (m.state.HighlightIndex - 1 + n) % n
		}
		return true, nil

	case key.Matches(msg, m.keys.Accept):
		if navigable && m.state.HighlightIndex >= 0 && m.state.HighlightIndex < n {
			return true, m.Select(m.state.HighlightIndex)
		}
		if m.opts.SubmitOnEnter {
			return true, m.Submit()
		}
		return false, nil

	case key.Matches(msg, m.keys.Close):
		if !m.state.IsOpen && !m.state.pending() {
			return false, nil
		}
		m.Dismiss()
		return true, nil
	}

	return false, nil
}
