// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/karmadev/karma-workflows/pkg/ux"
)

// Prompter asks the operator for decisions at confirmation gates. Behind an
// interface so the orchestrator and rollback flows can be tested with
// scripted answers.
type Prompter interface {
	// Confirm asks a yes/no question. def is the answer used as the
	// form's initial selection; gates pass false so "do not proceed" is
	// the default.
	Confirm(title, description string, def bool) (bool, error)

	// Input asks for a free-text line.
	Input(title, placeholder string) (string, error)

	// Select asks the operator to pick one of the options.
	Select(title string, options []string) (string, error)
}

// HuhPrompter implements Prompter with charmbracelet/huh forms. In
// non-interactive contexts every gate fails closed.
type HuhPrompter struct{}

// Confirm asks a yes/no question.
func (p *HuhPrompter) Confirm(title, description string, def bool) (bool, error) {
	if !ux.IsInteractive() {
		return def, nil
	}
	answer := def
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Yes").
			Negative("No").
			Value(&answer),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrAborted
		}
		return false, err
	}
	return answer, nil
}

// Input asks for a free-text line.
func (p *HuhPrompter) Input(title, placeholder string) (string, error) {
	if !ux.IsInteractive() {
		return "", fmt.Errorf("%q requires an interactive terminal", title)
	}
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Placeholder(placeholder).
			Value(&value),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrAborted
		}
		return "", err
	}
	return value, nil
}

// Select asks the operator to pick one of the options.
func (p *HuhPrompter) Select(title string, options []string) (string, error) {
	if !ux.IsInteractive() {
		return "", fmt.Errorf("%q requires an interactive terminal", title)
	}
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(huh.NewOptions(options...)...).
			Value(&value),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrAborted
		}
		return "", err
	}
	return value, nil
}

var _ Prompter = (*HuhPrompter)(nil)
