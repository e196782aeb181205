// Package errx provides small helpers for attaching context to sentinel
// errors while preserving errors.Is matching.
package errx

import (
	"errors"
	"fmt"
)

// With returns sentinel annotated with a formatted suffix.
// errors.Is(result, sentinel) remains true.
func With(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w"+format, append([]any{sentinel}, args...)...)
}

// Wrap returns sentinel wrapping cause. errors.Is matches both.
func Wrap(sentinel, cause error) error {
	return &wrapped{sentinel: sentinel, cause: cause}
}

type wrapped struct {
	sentinel error
	cause    error
}

func (w *wrapped) Error() string {
	return w.sentinel.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Is(target error) bool {
	return errors.Is(w.sentinel, target)
}

func (w *wrapped) Unwrap() error {
	return w.cause
}
