package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every failure returned by a Parser.
	ErrParse = errors.New("replay parse failed")

	ErrFileUnreadable     = errors.New("replay file unreadable")
	ErrCorruptContainer   = errors.New("replay container corrupt")
	ErrUnsupportedVersion = errors.New("unsupported replay version")
	ErrMalformedStats     = errors.New("malformed statistics table")
)

// ParseError carries a readable message plus the specific cause. It matches both
// ErrParse and Cause with errors.Is.
type ParseError struct {
	Cause   error
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Cause} }

func parseErr(cause error, format string, args ...any) error {
	return &ParseError{Cause: cause, Message: fmt.Sprintf(format, args...)}
}
