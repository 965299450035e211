package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/hubsearch/internal/api"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr turns backend failures into a status line a user can act on.
func describeErr(err error) string {
	var (
		serverErr *api.ServerError
		netErr    *api.NetworkError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "search timed out"
	case errors.As(err, &serverErr) && serverErr.StatusCode >= 500:
		return fmt.Sprintf("search service unavailable (%d)", serverErr.StatusCode)
	case errors.As(err, &netErr):
		return "search service unreachable, try again"
	case api.IsTransient(err):
		return "search service sent an unusable response"
	default:
		return err.Error()
	}
}
