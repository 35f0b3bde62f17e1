// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package main provides CommandRunner for abstracting external process
execution.

Every git call made by the deployment engine goes through this interface so
that tag operations can be mocked in unit tests. Direct exec.Command calls
are not testable because they execute real processes; behind an interface we
can capture invocations and simulate success/failure without a repository.
*/
package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// CommandRunner handles external process operations.
//
// Implementations must be safe for concurrent use. All methods accept a
// context for cancellation and timeout support.
type CommandRunner interface {
	// Run executes a command synchronously and returns its stdout.
	// Failures carry exit code and stderr as a *CommandError.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDir is Run with the working directory set.
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner implements CommandRunner using os/exec. This is the production
// implementation; use MockCommandRunner in tests.
type ExecRunner struct{}

// NewExecRunner creates a CommandRunner that executes real processes.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// Run executes a command synchronously and returns its stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.RunInDir(ctx, "", name, args...)
}

// RunInDir executes a command in the given directory and returns its stdout.
func (r *ExecRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		display := strings.TrimSpace(name + " " + strings.Join(args, " "))
		return nil, NewCommandError(display, exitCode, stderr.String(), err)
	}

	return stdout.Bytes(), nil
}

// MockCommandRunner is a test double for CommandRunner.
//
// Configure the mock by setting RunFunc before use; calls are recorded for
// verification.
type MockCommandRunner struct {
	// RunFunc is called for both Run and RunInDir.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// Calls records all invocations for verification.
	Calls []CommandRunnerCall

	mu sync.Mutex
}

// CommandRunnerCall records a single invocation.
type CommandRunnerCall struct {
	Dir  string
	Name string
	Args []string
}

// Run delegates to RunFunc and records the call.
func (m *MockCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.RunInDir(ctx, "", name, args...)
}

// RunInDir delegates to RunFunc and records the call.
func (m *MockCommandRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, CommandRunnerCall{Dir: dir, Name: name, Args: args})
	m.mu.Unlock()
	if m.RunFunc == nil {
		panic("MockCommandRunner.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// GetCalls returns a copy of all recorded calls.
func (m *MockCommandRunner) GetCalls() []CommandRunnerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]CommandRunnerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ CommandRunner = (*ExecRunner)(nil)
	_ CommandRunner = (*MockCommandRunner)(nil)
)
