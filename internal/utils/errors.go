package utils

import "fmt"

// QueryError attaches the failing operation and a short human-facing message
// to an underlying error. MCP clients surface Error() verbatim, so the
// message should be understandable without the stack around it.
type QueryError struct {
	Op  string
	Msg string
	Err error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError constructs a QueryError.
func NewQueryError(op, msg string, err error) error {
	return &QueryError{Op: op, Msg: msg, Err: err}
}
