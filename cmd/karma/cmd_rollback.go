// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
	"github.com/karmadev/karma-workflows/pkg/ux"
)

func runRollback(cmd *cobra.Command, args []string) error {
	cfg := &config.Global
	ctx := cmd.Context()

	env, hotfix, err := ParseEnvironmentToken(args[0])
	if err != nil {
		return err
	}
	if hotfix {
		return &ValidationError{Field: "environment", Value: args[0], Reason: "hotfix is a deploy mode, not a rollback target"}
	}

	git := NewCLIGitRepository(NewExecRunner(), "")
	monitor := newRunMonitor(cfg)
	if flagNoMonitor {
		monitor = nil
	}
	var runs RunService
	if cfg.CI.Repo != "" {
		runs = NewActionsClient(cfg.CI)
	}
	selector := NewRollbackSelector(git, &HuhPrompter{}, monitor, runs, cfg)

	target := flagRollbackTo
	if target == "" {
		target, err = pickRollbackTarget(cmd, selector, env)
		if err != nil {
			return err
		}
		if target == "" {
			ux.Info("Rollback cancelled. Nothing was changed.")
			return nil
		}
	}

	result, err := selector.Execute(ctx, env, target)
	if err != nil {
		return err
	}
	if result.Aborted {
		ux.Info("Rollback cancelled. Nothing was changed.")
		return nil
	}

	ux.Success(fmt.Sprintf("Pushed %s, redeploying %s (%s)", result.TagName, result.TargetTag, shortSHA(result.Commit)))
	return reportMonitor(result.Monitor, runsFallbackURL(cfg))
}

// pickRollbackTarget lists the environment's deployable history and lets the
// operator choose. Rollback markers are shown for context but cannot be
// picked; empty string means cancelled.
func pickRollbackTarget(cmd *cobra.Command, selector *RollbackSelector, env Environment) (string, error) {
	entries, err := selector.History(cmd.Context(), env, flagLimit)
	if err != nil {
		return "", err
	}

	var options []string
	for _, e := range entries {
		if e.Parsed.Rollback {
			continue
		}
		label := e.Tag.Name
		if e.Status != RunUnknown {
			label = fmt.Sprintf("%s (%s)", e.Tag.Name, e.Status)
		}
		options = append(options, label)
	}
	if len(options) == 0 {
		return "", &RollbackTargetError{Reason: fmt.Sprintf("no %s deployments to roll back to", env)}
	}
	options = append(options, "Cancel")

	choice, err := selector.Prompt.Select(fmt.Sprintf("Roll %s back to", env), options)
	if err != nil {
		return "", err
	}
	if choice == "Cancel" {
		return "", nil
	}
	// Strip the status suffix back off.
	if i := strings.IndexByte(choice, ' '); i > 0 {
		choice = choice[:i]
	}
	return choice, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := &config.Global

	env, hotfix, err := ParseEnvironmentToken(args[0])
	if err != nil {
		return err
	}
	if hotfix {
		env = EnvProduction
	}

	git := NewCLIGitRepository(NewExecRunner(), "")
	var runs RunService
	if cfg.CI.Repo != "" {
		runs = NewActionsClient(cfg.CI)
	}
	selector := NewRollbackSelector(git, &HuhPrompter{}, nil, runs, cfg)

	entries, err := selector.History(cmd.Context(), env, flagLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ux.Info(fmt.Sprintf("No %s deployments yet.", env))
		return nil
	}

	ux.Title(fmt.Sprintf("%s deployments for %s", env, cfg.Service.Name))
	for _, e := range entries {
		icon := ux.IconPending
		switch e.Status {
		case RunSuccess:
			icon = ux.IconSuccess
		case RunFailure:
			icon = ux.IconError
		}

		detail := fmt.Sprintf("%s  %s", shortSHA(e.Tag.Commit), e.Tag.CreatedAt.Format("2006-01-02 15:04"))
		if e.Tag.Author != "" {
			detail += "  " + e.Tag.Author
		}
		name := e.Tag.Name
		if e.Parsed.Rollback {
			name = "  ↩ " + name
		}
		ux.StatusLine(icon, name, detail)
	}
	return nil
}
