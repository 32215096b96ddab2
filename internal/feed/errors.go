package feed

import (
	"errors"
	"fmt"
	"strings"

	"uk.co.dudmesh.postfeed/internal/api"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindTransport
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const genericMessage = "Unknown server error."

// Error is the outcome of a failed store operation. Message is the most
// specific text available for display.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// invalidResponse is used when the service reports success without handing
// back the record.
func invalidResponse() *Error {
	return classify(&api.ServerError{Status: 200, Message: "Server returned an invalid response."})
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: "Post content cannot be empty.", Err: err}
}

// classify maps a collaborator failure to an Error, picking the message in
// order: server message, raw body, transport message, generic text.
func classify(err error) *Error {
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		return &Error{Kind: KindServer, Message: firstNonEmpty(serverErr.Message, serverErr.Body, serverErr.Error()), Err: err}
	}

	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return &Error{Kind: KindTransport, Message: firstNonEmpty(transportErr.Error()), Err: err}
	}

	var message string
	if err != nil {
		message = err.Error()
	}
	return &Error{Kind: KindTransport, Message: firstNonEmpty(message), Err: err}
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return genericMessage
}
