package storage

import (
	"errors"
	"fmt"
)

// ErrNotOpen is returned when an engine is used after Close or before Open.
var ErrNotOpen = errors.New("storage engine not open")

// ErrUnavailable is returned when the underlying engine cannot be constructed.
var ErrUnavailable = errors.New("storage engine unavailable")

// QueryError wraps a failure from the underlying engine (malformed SQL,
// constraint violation). The original engine message is preserved and the
// error is never retried.
type QueryError struct {
	Stmt string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryError reports whether err is (or wraps) a QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
