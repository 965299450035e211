// Package autocomplete is the debounced, cancellable search-as-you-type
// controller behind the search bar.
package autocomplete

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/hubsearch/internal/debuglog"
	"github.com/pders01/hubsearch/internal/recent"
	"github.com/pders01/hubsearch/internal/search"
)

// NavigateMsg requests navigation to Route. Item is set for a selection,
// Query for a full-query submission.
type NavigateMsg struct {
	Route string
	Item  *search.Item
	Query string
}

// debounceMsg fires when the quiet period for seq has elapsed.
type debounceMsg struct {
	seq   int
	query string
}

// resultsMsg carries the outcome of the fetch issued for seq.
type resultsMsg struct {
	seq     int
	query   string
	results *search.Results
	err     error
}

// Model is the autocomplete controller. All state changes happen on the
// bubbletea update goroutine; commands only deliver messages.
type Model struct {
	input    textinput.Model
	searcher search.Searcher
	recent   *recent.Log
	opts     Options
	keys     KeyMap
	styles   Styles

	state State
	// target is the trimmed query the latest fetch was scheduled for
	target     string
	resultsFor string
	seq        int
	cancel     context.CancelFunc
	mounted    bool

	originX, originY int
	width            int

	log *debuglog.FieldLogger
}

// New creates a mounted controller. recentLog may be nil.
func New(searcher search.Searcher, recentLog *recent.Log, opts Options) *Model {
	opts = opts.withDefaults()

	ti := textinput.New()
	ti.Placeholder = opts.Placeholder
	ti.Prompt = "› "
	ti.Focus()

	return &Model{
		input:    ti,
		searcher: searcher,
		recent:   recentLog,
		opts:     opts,
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		state:    State{HighlightIndex: -1},
		mounted:  true,
		log:      debuglog.WithFields(map[string]interface{}{"component": "autocomplete"}),
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// State returns a snapshot of the controller state.
func (m *Model) State() State {
	s := m.state
	s.Query = m.input.Value()
	return s
}

func (m *Model) Phase() Phase { return m.State().Phase() }

func (m *Model) Query() string { return m.input.Value() }

func (m *Model) Options() Options { return m.opts }

func (m *Model) Focused() bool { return m.input.Focused() }

func (m *Model) Focus() tea.Cmd { return m.input.Focus() }

func (m *Model) Blur() { m.input.Blur() }

// SetCursorMode switches the input cursor between blinking, static and hidden.
func (m *Model) SetCursorMode(mode cursor.Mode) tea.Cmd { return m.input.Cursor.SetMode(mode) }

// Mount makes the controller live again after Close.
func (m *Model) Mount() tea.Cmd {
	m.mounted = true
	return m.input.Focus()
}

// Close unmounts the controller: the pending debounce tick is voided, the
// in-flight request is cancelled, and messages that arrive later are
// dropped without touching state.
func (m *Model) Close() {
	m.mounted = false
	m.clear()
	m.input.Blur()
}

// Mounted reports whether the controller reacts to messages.
func (m *Model) Mounted() bool { return m.mounted }

// Update routes bubbletea messages into the controller.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceMsg:
		return m.handleDebounce(msg)

	case resultsMsg:
		m.handleResults(msg)
		return nil

	case tea.MouseMsg:
		_, cmd := m.HandleMouse(msg)
		return cmd

	case tea.KeyMsg:
		if !m.mounted {
			return nil
		}
		if handled, cmd := m.HandleKey(msg); handled {
			return cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != m.state.Query {
			return tea.Batch(cmd, m.SetQuery(v))
		}
		return cmd
	}

	if !m.mounted {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// SetQuery is called on every change of the input text. Queries below the
// minimum length clear the controller immediately and never reach the
// searcher; anything else (re)starts the quiet period.
func (m *Model) SetQuery(q string) tea.Cmd {
	if !m.mounted {
		return nil
	}
	if m.input.Value() != q {
		m.input.SetValue(q)
	}
	edited := q != m.state.Query
	m.state.Query = q

	trimmed := strings.TrimSpace(q)
	if utf8.RuneCountInString(trimmed) < m.opts.MinQueryLength {
		m.reset()
		return nil
	}
	if trimmed == m.target {
		if edited && m.state.dismissed {
			m.undismiss()
		}
		return nil
	}

	m.target = trimmed
	m.seq++
	m.cancelInFlight()
	m.state.dismissed = false
	m.state.IsLoading = false
	m.state.scheduled = true

	seq := m.seq
	return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq, query: trimmed}
	})
}

func (m *Model) handleDebounce(msg debounceMsg) tea.Cmd {
	if !m.mounted || msg.seq != m.seq {
		return nil
	}

	m.state.scheduled = false
	m.state.IsLoading = true

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
	m.cancel = cancel

	searcher, limit := m.searcher, m.opts.Limit
	m.log.Debugf("fetching suggestions seq=%d q=%q", msg.seq, msg.query)
	return func() tea.Msg {
		res, err := searcher.Search(ctx, msg.query, search.Options{Limit: limit})
		return resultsMsg{seq: msg.seq, query: msg.query, results: res, err: err}
	}
}

func (m *Model) handleResults(msg resultsMsg) {
	if !m.mounted || msg.seq != m.seq {
		m.log.Debugf("dropping stale results seq=%d q=%q (current seq=%d)", msg.seq, msg.query, m.seq)
		return
	}
	m.cancelInFlight()

	res := msg.results
	if msg.err != nil {
		m.log.Warnf("suggestion fetch for %q failed: %v", msg.query, msg.err)
		res = search.Empty()
	}
	if res == nil {
		res = search.Empty()
	}

	m.state.Suggestions = res
	m.resultsFor = msg.query
	m.state.IsLoading = false
	m.state.HighlightIndex = -1
	m.state.IsOpen = !m.state.dismissed
}

// Select navigates to the suggestion at index in the flattened list.
func (m *Model) Select(index int) tea.Cmd {
	flat := m.state.Flattened()
	if index < 0 || index >= len(flat) {
		return nil
	}
	item := flat[index]
	route := search.RouteFor(item)

	m.log.Infof("selected %s %s -> %s", item.Type, item.ID, route)
	m.clear()

	return func() tea.Msg {
		return NavigateMsg{Route: route, Item: &item}
	}
}

// Submit navigates to the full results page for the current query and
// records it in the recent-search log. Blank queries are a no-op.
func (m *Model) Submit() tea.Cmd {
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		return nil
	}
	if m.recent != nil {
		m.recent.Record(q)
	}
	route := search.ResultsRoute(q)

	m.log.Infof("submitted %q -> %s", q, route)
	m.clear()

	return func() tea.Msg {
		return NavigateMsg{Route: route, Query: q}
	}
}

// Dismiss closes the dropdown and drops the highlight. The query and any
// in-flight fetch are kept, but the fetch will not reopen the dropdown.
func (m *Model) Dismiss() {
	m.state.dismissed = true
	m.state.IsOpen = false
	m.state.HighlightIndex = -1
}

// undismiss lets the current target show again. Results already held for it
// reopen the dropdown; otherwise the pending fetch will.
func (m *Model) undismiss() {
	m.state.dismissed = false
	if !m.state.pending() && m.resultsFor == m.target {
		m.state.IsOpen = true
		m.state.HighlightIndex = -1
	}
}

func (m *Model) clear() {
	m.reset()
	m.state.Query = ""
	m.input.SetValue("")
}

// reset returns to Idle: pending tick voided, in-flight fetch cancelled.
func (m *Model) reset() {
	m.seq++
	m.cancelInFlight()
	m.target = ""
	m.resultsFor = ""
	m.state = State{Query: m.state.Query, HighlightIndex: -1}
}

func (m *Model) cancelInFlight() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
