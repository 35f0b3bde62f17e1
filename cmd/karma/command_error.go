package main

import (
	"fmt"
	"strings"
)

// CommandError wraps a subprocess failure with stderr context.
//
// # Description
//
// Provides rich error context for git command failures, including the
// command that failed, exit code, and stderr output. Implements the error
// interface and supports unwrapping.
//
// # Example
//
//	err := NewCommandError("git push origin v1.2.0", 1, "remote rejected", originalErr)
//	fmt.Println(err.Error()) // "git push origin v1.2.0 (exit 1): remote rejected"
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Stderr) // "remote rejected"
//	}
type CommandError struct {
	// Command is the command that was executed.
	Command string

	// ExitCode is the process exit code (-1 if unknown).
	ExitCode int

	// Stderr contains the standard error output.
	Stderr string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message including the command, exit code
// and stderr output if available.
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap returns the underlying error, enabling errors.Is/errors.As through
// the chain.
func (e *CommandError) Unwrap() error { return e.Wrapped }

// HasStderr returns true if stderr output is available.
func (e *CommandError) HasStderr() bool { return e.Stderr != "" }

// NewCommandError creates a CommandError with full context. Stderr is
// trimmed of leading/trailing whitespace.
func NewCommandError(cmd string, exitCode int, stderr string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Wrapped:  wrapped,
	}
}

// ExtractStderr walks the error chain looking for a CommandError with
// stderr. Returns the first stderr found, or empty string if none.
func ExtractStderr(err error) string {
	for err != nil {
		if cmdErr, ok := err.(*CommandError); ok && cmdErr.HasStderr() {
			return cmdErr.Stderr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
