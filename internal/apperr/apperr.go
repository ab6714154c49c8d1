// Package apperr defines the failure kinds surfaced by the analysis pipeline.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a failure.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindTimeout
	KindOperationFailed
	KindUnknownMethod
	KindUnknownTool
	KindUnknownPrompt
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindTimeout:
		return "timeout"
	case KindOperationFailed:
		return "operation failed"
	case KindUnknownMethod:
		return "unknown method"
	case KindUnknownTool:
		return "unknown tool"
	case KindUnknownPrompt:
		return "unknown prompt"
	default:
		return "unknown error"
	}
}

// Error is a classified failure. Message is what callers see; Cause is kept
// for errors.Is / errors.As chains.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrOperationFailed = &Error{Kind: KindOperationFailed}
	ErrUnknownMethod   = &Error{Kind: KindUnknownMethod}
	ErrUnknownTool     = &Error{Kind: KindUnknownTool}
	ErrUnknownPrompt   = &Error{Kind: KindUnknownPrompt}
)

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput returns a KindInvalidInput error with the formatted message.
func InvalidInput(format string, args ...any) error {
	return newf(KindInvalidInput, format, args...)
}

// Timeout returns a KindTimeout error with the formatted message.
func Timeout(format string, args ...any) error {
	return newf(KindTimeout, format, args...)
}

// UnknownTool returns a KindUnknownTool error for name.
func UnknownTool(name string) error {
	return newf(KindUnknownTool, "Unknown tool: %s", name)
}

// UnknownPrompt returns a KindUnknownPrompt error for name.
func UnknownPrompt(name string) error {
	return newf(KindUnknownPrompt, "Unknown prompt: %s", name)
}

// UnknownMethod returns a KindUnknownMethod error for method.
func UnknownMethod(method string) error {
	return newf(KindUnknownMethod, "Method not found: %s", method)
}

// OperationFailed classifies err as KindOperationFailed, keeping its text.
// Errors that already carry a kind are returned unchanged.
func OperationFailed(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: KindOperationFailed, Cause: err}
}

// KindOf returns the kind of err, or zero if err is not classified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return 0
}
