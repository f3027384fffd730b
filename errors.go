package filebridge

import (
	"errors"
	"fmt"
)

// Code is a numeric filesystem error code. Codes 1-12 follow the web
// File API error codes reported by native filesystem plugins; codes 13
// and 14 are raised by this layer and are not part of the standard.
type Code int

const (
	CodeNotFound              Code = 1
	CodeSecurity              Code = 2
	CodeAbort                 Code = 3
	CodeNotReadable           Code = 4
	CodeEncoding              Code = 5
	CodeNoModificationAllowed Code = 6
	CodeInvalidState          Code = 7
	CodeSyntax                Code = 8
	CodeInvalidModification   Code = 9
	CodeQuotaExceeded         Code = 10
	CodeTypeMismatch          Code = 11
	CodePathExists            Code = 12

	// CodeWrongEntryType is raised when a lookup returns a file where a
	// directory was expected, or the other way around.
	CodeWrongEntryType Code = 13

	// CodeDirReadError is raised when draining a directory reader fails.
	CodeDirReadError Code = 14
)

// codeNames maps every known code to its human-readable name.
// Initialized once, never mutated at runtime.
var codeNames = map[Code]string{
	CodeNotFound:              "NOT_FOUND_ERR",
	CodeSecurity:              "SECURITY_ERR",
	CodeAbort:                 "ABORT_ERR",
	CodeNotReadable:           "NOT_READABLE_ERR",
	CodeEncoding:              "ENCODING_ERR",
	CodeNoModificationAllowed: "NO_MODIFICATION_ALLOWED_ERR",
	CodeInvalidState:          "INVALID_STATE_ERR",
	CodeSyntax:                "SYNTAX_ERR",
	CodeInvalidModification:   "INVALID_MODIFICATION_ERR",
	CodeQuotaExceeded:         "QUOTA_EXCEEDED_ERR",
	CodeTypeMismatch:          "TYPE_MISMATCH_ERR",
	CodePathExists:            "PATH_EXISTS_ERR",
	CodeWrongEntryType:        "WRONG_ENTRY_TYPE_ERR",
	CodeDirReadError:          "DIR_READ_ERR",
}

// String returns the human-readable name for the code, or "UNKNOWN_ERR"
// for codes outside the table.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN_ERR"
}

// Error is the error type surfaced by every bridge operation. It pairs the
// numeric code reported by the native layer with the human-readable name
// from the code table.
type Error struct {
	Code    Code
	Message string
}

// NewError builds an Error for a native code, attaching the table name as
// the message. Unknown codes get the "unknown error" fallback message.
func NewError(code Code) *Error {
	msg, ok := codeNames[code]
	if !ok {
		msg = "unknown error"
	}
	return &Error{Code: code, Message: msg}
}

// Errorf builds an Error with a formatted message in place of the table name.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("filebridge: %s (code %d)", e.Message, e.Code)
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is works across wrapped errors regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the numeric code from an error chain.
// Returns 0 when the chain contains no *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsNotFound reports whether an error indicates that a file or directory
// does not exist.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsExist reports whether an error indicates that a file or directory
// already exists.
func IsExist(err error) bool {
	return CodeOf(err) == CodePathExists
}

// IsTypeMismatch reports whether an error indicates that a lookup returned
// an entry of the wrong kind.
func IsTypeMismatch(err error) bool {
	c := CodeOf(err)
	return c == CodeTypeMismatch || c == CodeWrongEntryType
}

// IsEncoding reports whether an error indicates a rejected path argument.
func IsEncoding(err error) bool {
	return CodeOf(err) == CodeEncoding
}

// ErrNotSupported is returned when a driver does not implement an optional
// capability such as watching.
var ErrNotSupported = errors.New("filebridge: operation not supported")
