package utils

import "fmt"

// AppError carries the failing operation alongside a human-facing message so
// logs and API responses can show context without unwrapping.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	msg := e.Op + ": " + e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the cause for errors.Is and errors.As.
func (e *AppError) Unwrap() error { return e.Err }

// NewAppError wraps err with the operation name and message. err may be nil
// when the failure originates here.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
