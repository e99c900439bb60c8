// Package errors provides error constructors that stamp the call site
// (file and line) into the message, so failures surfaced from deep in the
// agent loop remain traceable without stack traces.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// caller returns the base filename and line of the constructor's caller.
func caller() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???", 0
	}
	return filepath.Base(file), line
}

// New creates an error annotated with the caller's file and line.
func New(format string, a ...interface{}) error {
	file, line := caller()
	return fmt.Errorf("[%s:%d] %s", file, line, fmt.Sprintf(format, a...))
}

// Wrapf adds context and the caller's file and line to an existing error.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	file, line := caller()
	return fmt.Errorf("[%s:%d] %s: %w", file, line, fmt.Sprintf(format, a...), err)
}
