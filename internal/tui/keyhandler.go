package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/hubsearch/internal/autocomplete"
	"github.com/pders01/hubsearch/internal/search"
)

type appKeyMap struct {
	Quit        key.Binding
	Back        key.Binding
	Search      key.Binding
	Open        key.Binding
	Refresh     key.Binding
	ClearRecent key.Binding
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	Switch      key.Binding
}

func defaultAppKeyMap() appKeyMap {
	return appKeyMap{
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Search:      key.NewBinding(key.WithKeys("ctrl+s", "/"), key.WithHelp("ctrl+s", "search")),
		Open:        key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open in browser")),
		Refresh:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh feeds")),
		ClearRecent: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear recent")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Switch:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "recent searches")),
	}
}

type KeyHandler struct {
	app  *App
	keys appKeyMap
}

func NewKeyHandler(app *App) *KeyHandler {
	return &KeyHandler{app: app, keys: defaultAppKeyMap()}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, kh.keys.Quit) {
		return kh.app, tea.Quit
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewHome && kh.app.searchBar.Focused()
}

// handleTextInputMode gives the search bar first claim on every key. Esc and
// tab only leave the input once the dropdown is closed and no fetch is pending.
func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	bar := kh.app.searchBar
	if !bar.State().IsOpen && bar.Phase() != autocomplete.PhasePending {
		switch {
		case key.Matches(msg, kh.keys.Back):
			return kh.app, kh.app.navigateBack()
		case key.Matches(msg, kh.keys.Switch):
			if len(kh.app.recent.Entries()) > 0 {
				bar.Blur()
				kh.app.recentIndex = 0
			}
			return kh.app, nil
		}
	}
	return kh.app, bar.Update(msg)
}

func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, kh.keys.Back):
		return kh.app, kh.app.navigateBack(), true
	case key.Matches(msg, kh.keys.Search):
		return kh.app, kh.app.focusSearch(), true
	case key.Matches(msg, kh.keys.Open):
		return kh.app, kh.app.openInBrowser(kh.openRoute()), true
	}

	switch kh.app.view {
	case ViewHome:
		return kh.handleHomeCustomKeys(msg)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleHomeCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	app := kh.app
	switch {
	case key.Matches(msg, kh.keys.Refresh):
		return app, app.refreshFeeds(), true
	case key.Matches(msg, kh.keys.ClearRecent):
		app.recent.Clear()
		app.recentIndex = -1
		app.setStatus(MsgRecentCleared, StatusSuccess)
		return app, nil, true
	}

	if app.recentIndex < 0 {
		return app, nil, false
	}

	entries := app.recent.Entries()
	switch {
	case key.Matches(msg, kh.keys.Up):
		if app.recentIndex == 0 {
			app.recentIndex = -1
			return app, app.searchBar.Focus(), true
		}
		app.recentIndex--
		return app, nil, true
	case key.Matches(msg, kh.keys.Down):
		if app.recentIndex < len(entries)-1 {
			app.recentIndex++
		}
		return app, nil, true
	case key.Matches(msg, kh.keys.Switch):
		app.recentIndex = -1
		return app, app.searchBar.Focus(), true
	case key.Matches(msg, kh.keys.Select):
		if app.recentIndex < len(entries) {
			return app, app.submitRecent(entries[app.recentIndex]), true
		}
		return app, nil, true
	}
	return app, nil, false
}

// openRoute is the route ctrl+o opens: the highlighted result on the results
// page, the current route elsewhere.
func (kh *KeyHandler) openRoute() string {
	if kh.app.view == ViewResults {
		if it, ok := kh.app.selectedResult(); ok {
			return search.RouteFor(it)
		}
	}
	return kh.app.route
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	app := kh.app
	var cmd tea.Cmd

	switch app.view {
	case ViewHome:
		// typing anywhere on home goes back to the search bar
		if msg.Type == tea.KeyRunes && app.recentIndex < 0 {
			focus := app.searchBar.Focus()
			return app, tea.Batch(focus, app.searchBar.Update(msg))
		}
		return app, nil

	case ViewResults:
		if app.loading {
			return app, nil
		}
		if key.Matches(msg, kh.keys.Select) {
			if it, ok := app.selectedResult(); ok {
				return app, app.navigate(autocomplete.NavigateMsg{Route: search.RouteFor(it), Item: &it})
			}
			return app, nil
		}
		app.resultList, cmd = app.resultList.Update(msg)
		return app, cmd

	case ViewDetail:
		app.viewport, cmd = app.viewport.Update(msg)
		return app, cmd

	default:
		return app, nil
	}
}

// Bindings is the short help for the current view.
func (kh *KeyHandler) Bindings() []key.Binding {
	k := kh.keys
	switch kh.app.view {
	case ViewResults:
		return []key.Binding{k.Up, k.Down, k.Select, k.Open, k.Back, k.Search, k.Quit}
	case ViewDetail:
		return []key.Binding{k.Open, k.Back, k.Search, k.Quit}
	}

	if kh.isInTextInputMode() {
		if kh.app.searchBar.State().IsOpen {
			return append(kh.app.searchBar.KeyMap().ShortHelp(), k.Quit)
		}
		return []key.Binding{k.Switch, k.Back, k.Quit}
	}
	return []key.Binding{k.Search, k.Up, k.Down, k.Select, k.Refresh, k.ClearRecent, k.Quit}
}
