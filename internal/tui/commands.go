package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/hubsearch/internal/search"
	"github.com/pders01/hubsearch/internal/storage"
)

// refreshTimeout bounds a full tender feed refresh started from the TUI.
const refreshTimeout = 2 * time.Minute

type resultsLoadedMsg struct {
	query   string
	results *search.Results
	err     error
}

type detailRenderedMsg struct {
	route    string
	content  string
	location string
}

type openedMsg struct {
	url string
}

type refreshDoneMsg struct {
	added    int
	err      error
	docCount int
}

type errorMsg struct {
	err error
}

func (a *App) loadResults(query string) tea.Cmd {
	searcher := a.searcher
	limit := a.config.Search.ResultsLimit
	timeout := a.searchBar.Options().Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := searcher.Search(ctx, query, search.Options{Limit: limit})
		return resultsLoadedMsg{query: query, results: res, err: err}
	}
}

func (a *App) renderDetail(item search.Item, route string, r *glamour.TermRenderer) tea.Cmd {
	store := a.store
	location := route
	if a.opener != nil {
		if u, err := a.opener.URLFor(route); err == nil {
			location = u
		}
	}
	return func() tea.Msg {
		var listing *storage.Listing
		if store != nil {
			if l, err := store.GetListing(string(item.Type), item.ID); err == nil {
				listing = l
			}
		}

		rendered, err := r.Render(detailMarkdown(item, listing))
		if err != nil {
			// still deliver the message so the loading state clears
			return detailRenderedMsg{
				route:    route,
				content:  fmt.Sprintf("# Error\n\nFailed to render %s: %s\n\nPress Escape to go back.", route, err),
				location: location,
			}
		}
		return detailRenderedMsg{route: route, content: rendered, location: location}
	}
}

func detailMarkdown(item search.Item, listing *storage.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Label())

	b.WriteString("*" + kindName(item.Type) + "*")
	if item.Name != "" && item.Name != item.Label() {
		fmt.Fprintf(&b, " · %s", item.Name)
	}
	b.WriteString("\n\n")

	if listing != nil {
		if !listing.Published.IsZero() {
			fmt.Fprintf(&b, "*Published: %s*\n\n", listing.Published.Format("Jan 2, 2006"))
		}
		if listing.URL != "" {
			fmt.Fprintf(&b, "[View source](%s)\n\n", listing.URL)
		}
	}

	b.WriteString("---\n\n")

	desc := item.Description
	if desc == "" && listing != nil {
		desc = listing.Description
	}
	if desc == "" {
		desc = "_No description._"
	}
	b.WriteString(desc)
	b.WriteString("\n")

	return b.String()
}

func (a *App) openInBrowser(route string) tea.Cmd {
	if route == "" {
		return a.fail(errors.New(MsgNothingToOpen))
	}
	if a.opener == nil {
		return a.fail(errors.New(MsgNoOpener))
	}
	opener := a.opener
	return func() tea.Msg {
		target, err := opener.URLFor(route)
		if err != nil {
			return errorMsg{err: wrapErr("open", err)}
		}
		if err := opener.Open(route); err != nil {
			return errorMsg{err: wrapErr("open", err)}
		}
		return openedMsg{url: target}
	}
}

func (a *App) refreshFeeds() tea.Cmd {
	if a.feeds == nil {
		return a.fail(errors.New(MsgNoFeedManager))
	}
	a.refreshing = true
	a.setStatus(MsgRefreshing, StatusInfo)

	manager, searcher := a.feeds, a.searcher
	refresh := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		added, err := manager.RefreshAll(ctx)
		docs := -1
		if s, ok := searcher.(search.DebugStatser); ok {
			if n, err := s.DocCount(); err == nil {
				docs = n
			}
		}
		return refreshDoneMsg{added: added, err: err, docCount: docs}
	}
	return tea.Batch(a.spinner.Tick, refresh)
}

// countErrors counts the failures folded into err by errors.Join.
func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
