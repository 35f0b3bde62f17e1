// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with stdout redirected to a pipe and returns what
// was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(out)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(out)
}

func setLevel(t *testing.T, level PersonalityLevel) {
	t.Helper()
	orig := GetPersonality()
	SetPersonalityLevel(level)
	t.Cleanup(func() { SetPersonalityLevel(orig.Level) })
}

// ============================================================================
// Machine mode output formats
// ============================================================================

func TestSuccessMachineFormat(t *testing.T) {
	setLevel(t, PersonalityMachine)

	out := captureStdout(t, func() { Success("tag pushed") })
	if out != "OK: tag pushed\n" {
		t.Errorf("Success machine output = %q, want %q", out, "OK: tag pushed\n")
	}
}

func TestWarningMachineGoesToStderr(t *testing.T) {
	setLevel(t, PersonalityMachine)

	errOut := captureStderr(t, func() { Warning("uncommitted changes") })
	if errOut != "WARN: uncommitted changes\n" {
		t.Errorf("Warning machine stderr = %q, want %q", errOut, "WARN: uncommitted changes\n")
	}
}

func TestErrorMachineGoesToStderr(t *testing.T) {
	setLevel(t, PersonalityMachine)

	errOut := captureStderr(t, func() { Error("push rejected") })
	if errOut != "ERROR: push rejected\n" {
		t.Errorf("Error machine stderr = %q, want %q", errOut, "ERROR: push rejected\n")
	}
}

func TestKeyValueMachineFormat(t *testing.T) {
	setLevel(t, PersonalityMachine)

	out := captureStdout(t, func() { KeyValue("tag", "v1.2.0-dev") })
	if out != "tag=v1.2.0-dev\n" {
		t.Errorf("KeyValue machine output = %q, want %q", out, "tag=v1.2.0-dev\n")
	}
}

func TestStatusLineMachineTabSeparated(t *testing.T) {
	setLevel(t, PersonalityMachine)

	out := captureStdout(t, func() { StatusLine(IconSuccess, "v1.2.0", "2h ago") })
	if out != "✓\tv1.2.0\t2h ago\n" {
		t.Errorf("StatusLine machine output = %q, want %q", out, "✓\tv1.2.0\t2h ago\n")
	}
}

func TestTitleAndMutedSuppressedInMachineMode(t *testing.T) {
	setLevel(t, PersonalityMachine)

	out := captureStdout(t, func() {
		Title("Deployment Plan")
		Muted("details follow")
	})
	if out != "" {
		t.Errorf("Title/Muted machine output = %q, want empty", out)
	}
}

func TestBoxMachineFormat(t *testing.T) {
	setLevel(t, PersonalityMachine)

	out := captureStdout(t, func() { Box("Plan", "v2.0.0 to production") })
	if out != "Plan: v2.0.0 to production\n" {
		t.Errorf("Box machine output = %q, want %q", out, "Plan: v2.0.0 to production\n")
	}
}

// ============================================================================
// Richer modes
// ============================================================================

func TestSuccessMinimalIncludesIconAndText(t *testing.T) {
	setLevel(t, PersonalityMinimal)

	out := captureStdout(t, func() { Success("tag pushed") })
	if !containsAll(out, "✓", "tag pushed") {
		t.Errorf("Success minimal output = %q, want icon and text", out)
	}
}

func TestStatusLineMinimalDropsDetail(t *testing.T) {
	setLevel(t, PersonalityMinimal)

	out := captureStdout(t, func() { StatusLine(IconPending, "v1.2.0", "2h ago") })
	if !containsAll(out, "○", "v1.2.0") {
		t.Errorf("StatusLine minimal output = %q, want icon and primary", out)
	}
	if containsAll(out, "2h ago") {
		t.Errorf("StatusLine minimal output = %q, detail should be dropped", out)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
