// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"errors"
	"testing"
)

// ============================================================================
// Machine mode behavior
// ============================================================================

func TestSpinnerMachineModePrintsOnce(t *testing.T) {
	setLevel(t, PersonalityMachine)

	s := NewSpinner("waiting for workflow")
	out := captureStdout(t, func() {
		s.Start()
		s.Start() // second Start is a no-op
		s.Stop()
	})
	if out != "PROGRESS: waiting for workflow\n" {
		t.Errorf("spinner machine output = %q, want single PROGRESS line", out)
	}
}

func TestSpinnerStopBeforeStartIsNoop(t *testing.T) {
	setLevel(t, PersonalityMachine)

	s := NewSpinner("idle")
	out := captureStdout(t, func() { s.Stop() })
	if out != "" {
		t.Errorf("Stop before Start wrote %q, want nothing", out)
	}
}

func TestSpinnerUpdateMessage(t *testing.T) {
	s := NewSpinner("first")
	s.UpdateMessage("second")
	if s.message != "second" {
		t.Errorf("message = %q, want %q", s.message, "second")
	}
}

func TestStopWithSuccessMachineFormat(t *testing.T) {
	setLevel(t, PersonalityMachine)

	s := NewSpinner("pushing")
	out := captureStdout(t, func() {
		s.Start()
		s.StopWithSuccess("pushed v1.2.0-dev")
	})
	want := "PROGRESS: pushing\nOK: pushed v1.2.0-dev\n"
	if out != want {
		t.Errorf("StopWithSuccess output = %q, want %q", out, want)
	}
}

// ============================================================================
// WithSpinner
// ============================================================================

func TestWithSpinnerSuccess(t *testing.T) {
	setLevel(t, PersonalityMachine)

	var ran bool
	out := captureStdout(t, func() {
		err := WithSpinner("creating tag", func() error {
			ran = true
			return nil
		})
		if err != nil {
			t.Errorf("WithSpinner returned %v, want nil", err)
		}
	})
	if !ran {
		t.Error("wrapped function did not run")
	}
	want := "PROGRESS: creating tag\nOK: creating tag\n"
	if out != want {
		t.Errorf("WithSpinner output = %q, want %q", out, want)
	}
}

func TestWithSpinnerError(t *testing.T) {
	setLevel(t, PersonalityMachine)

	boom := errors.New("remote rejected")
	errOut := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err := WithSpinner("pushing tag", func() error { return boom })
			if !errors.Is(err, boom) {
				t.Errorf("WithSpinner returned %v, want the wrapped error", err)
			}
		})
	})
	if errOut != "ERROR: pushing tag: remote rejected\n" {
		t.Errorf("WithSpinner error output = %q", errOut)
	}
}
