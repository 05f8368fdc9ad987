package command

import "fmt"

// Error codes returned to command channel clients.
const (
	CodeActivityStartFailed = "ACTIVITY_START_FAILED"
	CodeStartFailed         = "START_FAILED"
	CodeNotImplemented      = "NOT_IMPLEMENTED"
	CodeBadArgs             = "BAD_ARGS"
	CodeUnavailable         = "UNAVAILABLE"
)

// Error is a failure reported to a client with a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Err: err}
}
