package api

import (
	"errors"
	"fmt"
)

// NetworkError is a transport level failure: DNS, refused connection, reset,
// timeout or cancellation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a response the client could not use: an HTTP status >= 400
// or a body that is not a valid result set.
type ServerError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search API: status %d: %v", e.StatusCode, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("search API: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("search API: status %d", e.StatusCode)
}

func (e *ServerError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a fetch failure the caller should
// recover from by showing no results.
func IsTransient(err error) bool {
	var ne *NetworkError
	var se *ServerError
	return errors.As(err, &ne) || errors.As(err, &se)
}
