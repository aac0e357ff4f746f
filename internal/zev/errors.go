package zev

import (
	"errors"
	"fmt"
)

// Decode errors.
var (
	// ErrInvalidHeader indicates a bad magic, sentinel or step table count.
	ErrInvalidHeader = errors.New("zev: invalid header")

	// ErrInvalidFile indicates a structural problem past the header.
	ErrInvalidFile = errors.New("zev: invalid file")
)

// ErrLogic is returned by Encode when the model cannot be laid out.
// Under normal operation it is unreachable.
var ErrLogic = errors.New("zev: logic error")

// Mutation errors.
var (
	ErrStringNotASCII  = errors.New("zev: string is not ascii")
	ErrStringTooLong   = errors.New("zev: string too long")
	ErrStringSizeWrong = errors.New("zev: string has wrong size")
	ErrOutOfRange      = errors.New("zev: index out of range")
	ErrAlreadyExists   = errors.New("zev: already exists")
)

// HeaderError reports a header field that does not hold its required value.
type HeaderError struct {
	Field    string
	Expected uint16
	Actual   uint16
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("zev: invalid header: %s: expected %#04x, got %#04x", e.Field, e.Expected, e.Actual)
}

func (e *HeaderError) Unwrap() error { return ErrInvalidHeader }

// FileError reports an invalid file condition at a byte offset.
type FileError struct {
	Offset int
	Reason string
	Err    error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zev: invalid file at %#x: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("zev: invalid file at %#x: %s", e.Offset, e.Reason)
}

func (e *FileError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidFile, e.Err}
	}
	return []error{ErrInvalidFile}
}

func fileErrorf(offset int, format string, args ...any) *FileError {
	return &FileError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
