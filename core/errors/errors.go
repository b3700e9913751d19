package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidInput    Category = "invalid_input"
	CategoryVerification    Category = "verification_failed"
	CategoryIOFailure       Category = "io_failure"
	CategoryInternalFailure Category = "internal_failure"
)

type classifiedError struct {
	category Category
	code     string
	hint     string
	cause    error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// Wrap attaches a category, a stable code and an operator hint to cause.
// A nil cause yields nil.
func Wrap(cause error, category Category, code, hint string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category: category,
		code:     code,
		hint:     hint,
		cause:    cause,
	}
}

func Newf(category Category, code, hint, format string, args ...any) error {
	return Wrap(fmt.Errorf(format, args...), category, code, hint)
}

func CategoryOf(err error) Category {
	if classified, ok := asClassified(err); ok {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	if classified, ok := asClassified(err); ok {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	if classified, ok := asClassified(err); ok {
		return classified.hint
	}
	return ""
}

func asClassified(err error) (*classifiedError, bool) {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}
