package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the server has no record for the given ID.
var ErrNotFound = errors.New("agnos: record not found")

// ErrTransportUnavailable marks a tier of the fallback cascade as
// unreachable. It is swallowed by the cascade and only logged; callers see
// it from the direct HTTP helpers.
var ErrTransportUnavailable = errors.New("agnos: transport unavailable")

// ErrNotRecorded is the one user-visible cascade failure: every tier failed,
// including local storage, so the action is not durably recorded anywhere.
var ErrNotRecorded = errors.New("agnos: action was not recorded anywhere")

// APIError is a non-success response from the request/response surface.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agnos: server returned %d: %s", e.Status, e.Msg)
}
