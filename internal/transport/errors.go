// Package transport implements the HTTP client for the SportsTix gateway:
// envelope decoding, bearer-token attachment and the single-flight token
// refresh that deduplicates concurrent 401 recoveries.
package transport

import (
	"errors"
	"fmt"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// ErrSessionExpired is returned when a 401 could not be recovered: either no
// refresh token was available or the refresh exchange itself failed. The
// session has been cleared by the time callers see this error; they should
// move the user to the unauthenticated state and not retry.
var ErrSessionExpired = errors.New("session expired")

// ErrNoSession is returned when a request requiring authentication is made
// while no access token is installed.
var ErrNoSession = errors.New("no active session")

// APIError is a domain failure reported inside a response envelope (seat
// already taken, queue token expired, hold expired...). These are surfaced
// to the caller for display and are never retried automatically.
type APIError struct {
	Status  int    // HTTP status of the response
	Code    string // stable machine code from the envelope
	Message string // human-readable message from the envelope
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.Status, e.Message)
}

// Error codes the client branches on. The gateway owns this vocabulary;
// only codes with client-side behavior are named here.
const (
	CodeSeatTaken         = "SEAT_ALREADY_TAKEN"
	CodeQueueTokenExpired = "QUEUE_TOKEN_EXPIRED"
	CodeQueueTokenMissing = "QUEUE_TOKEN_MISSING"
	CodeHoldExpired       = "HOLD_EXPIRED"
	CodeBookingNotFound   = "BOOKING_NOT_FOUND"
)

// IsCode reports whether err is an APIError carrying the given code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// newAPIError builds an APIError from an envelope error body, tolerating a
// nil body for responses that fail without one.
func newAPIError(status int, body *model.APIErrorBody) *APIError {
	if body == nil {
		return &APIError{Status: status, Code: "UNKNOWN", Message: "request failed"}
	}
	return &APIError{Status: status, Code: body.Code, Message: body.Message}
}
