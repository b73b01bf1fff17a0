// Package errs holds the error kinds shared by the services and the HTTP boundary.
package errs

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation signals malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrUpstreamFormat signals model output that could not be interpreted.
	ErrUpstreamFormat = errors.New("unexpected upstream format")
	// ErrNoContent signals that no extractable content was found.
	ErrNoContent = errors.New("no content found")
	// ErrConfiguration signals a missing credential or setting.
	ErrConfiguration = errors.New("not configured")
	// ErrTransport signals a failed call to an upstream service.
	ErrTransport = errors.New("upstream call failed")
)

// Error attaches a kind to an underlying cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return e.Msg + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

func UpstreamFormat(msg string, err error) error {
	return &Error{Kind: ErrUpstreamFormat, Msg: msg, Err: err}
}

func NoContent(msg string) error {
	return &Error{Kind: ErrNoContent, Msg: msg}
}

func Configuration(msg string) error {
	return &Error{Kind: ErrConfiguration, Msg: msg}
}

func Transport(msg string, err error) error {
	return &Error{Kind: ErrTransport, Msg: msg, Err: err}
}

// Status maps an error kind to an HTTP status. Configuration errors map to 500;
// routes that report them as unavailable override that themselves.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamFormat):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoContent):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
