// Package errors defines the sentinel errors and typed error values shared by
// the index loaders, the scoring pipeline and the service front ends.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrFormat              = errors.New("malformed index file")
	ErrEmptyIndex          = errors.New("empty index")
	ErrTruncatedPostings   = errors.New("truncated postings list")
	ErrInvalidOffset       = errors.New("postings offset out of range")
	ErrMissingVectorLength = errors.New("missing vector length")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

// Process exit codes used by the command line tools.
const (
	ExitOK      = 0
	ExitRuntime = 1
	ExitUsage   = 2
	ExitFormat  = 3
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// FormatError reports a parse failure at a position in a text index file.
// Line and Column are 1-based; Column is 0 when the whole line is at fault.
type FormatError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *FormatError) Error() string {
	name := e.File
	if name == "" {
		name = "<input>"
	}
	if e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", name, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", name, e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// PostingsError describes a postings read that could not be satisfied.
// Kind is either ErrTruncatedPostings or ErrInvalidOffset.
type PostingsError struct {
	Kind   error
	File   string
	Offset uint64
	Count  uint32
	Size   int64
}

func (e *PostingsError) Error() string {
	return fmt.Sprintf("%s: %s: offset=%d count=%d file_size=%d",
		e.File, e.Kind.Error(), e.Offset, e.Count, e.Size)
}

func (e *PostingsError) Unwrap() error { return e.Kind }

// MissingVectorLengthError is returned when a scored document has no entry in
// the vector length table.
type MissingVectorLengthError struct {
	DocID uint32
}

func (e *MissingVectorLengthError) Error() string {
	return fmt.Sprintf("%s for doc %d", ErrMissingVectorLength.Error(), e.DocID)
}

func (e *MissingVectorLengthError) Unwrap() error { return ErrMissingVectorLength }

// IsTermScoped reports whether err only invalidates the contribution of a
// single query term, leaving the rest of the query usable.
func IsTermScoped(err error) bool {
	return errors.Is(err, ErrTruncatedPostings) || errors.Is(err, ErrInvalidOffset)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to the exit status of a command line run.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, ErrFormat), errors.Is(err, ErrEmptyIndex):
		return ExitFormat
	default:
		return ExitRuntime
	}
}
