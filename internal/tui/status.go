package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgSearching     = "Searching…"
	MsgLoadingDetail = "Loading…"
	MsgRefreshing    = "Refreshing tender feeds…"
	MsgNoResults     = "No results"
	MsgNoOpener      = "No browser opener configured"
	MsgNoFeedManager = "Feed import needs the local backend"
	MsgRecentCleared = "Recent searches cleared"
	MsgNothingToOpen = "Nothing to open"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgResultsFor(query string, n int) string {
	return fmt.Sprintf("%s for %q", MsgResultsCount(n), strings.TrimSpace(query))
}

func MsgOpened(url string) string {
	return "Opened " + url
}

func MsgRefreshSummary(added, errors, docCount int) string {
	base := fmt.Sprintf("Refreshed: %d listings", added)
	if errors > 0 {
		base += fmt.Sprintf(" • %d errors", errors)
	}
	if docCount >= 0 {
		base += fmt.Sprintf(" • idx: %d docs", docCount)
	}
	return base
}

// StatusKind indicates severity for status bar messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

type status struct {
	text string
	kind StatusKind
}

func (s status) render() string {
	switch s.kind {
	case StatusSuccess:
		return StatusSuccessStyle.Render("✓ " + s.text)
	case StatusWarn:
		return StatusWarnStyle.Render(s.text)
	case StatusError:
		return StatusErrorStyle.Render("✗ " + s.text)
	default:
		return StatusInfoStyle.Render(s.text)
	}
}
