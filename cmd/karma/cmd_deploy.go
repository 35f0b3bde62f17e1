// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
	"github.com/karmadev/karma-workflows/pkg/ux"
)

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg := &config.Global

	env, hotfix, err := ParseEnvironmentToken(args[0])
	if err != nil {
		return err
	}

	if hotfix && !cfg.Features.Hotfix {
		return &ValidationError{Field: "environment", Value: args[0], Reason: "hotfix deployments are disabled for this service"}
	}
	if flagPreview && !cfg.Features.Preview {
		return &ValidationError{Field: "--preview", Reason: "preview mode is disabled for this service"}
	}

	intent, err := buildIntent(env, hotfix)
	if err != nil {
		return err
	}

	git := NewCLIGitRepository(NewExecRunner(), "")
	deployer := NewDeployer(git, &HuhPrompter{}, newRunMonitor(cfg), cfg)

	result, err := deployer.Deploy(cmd.Context(), intent)
	if err != nil {
		return err
	}
	return reportDeploy(cfg, result)
}

// runsFallbackURL is the manual-monitoring pointer shown when a CI run
// cannot be observed.
func runsFallbackURL(cfg *config.WorkflowsConfig) string {
	if cfg.CI.Repo == "" {
		return ""
	}
	return NewActionsClient(cfg.CI).RunsPageURL()
}

// buildIntent maps the flag set to a DeploymentIntent, rejecting
// contradictory combinations up front.
func buildIntent(env Environment, hotfix bool) (DeploymentIntent, error) {
	modes := 0
	for _, set := range []bool{flagMajor, flagMinor, flagPatch, flagVersion != "", flagRebuild} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return DeploymentIntent{}, &ValidationError{
			Field:  "flags",
			Reason: "--major, --minor, --patch, --version and --rebuild are mutually exclusive",
		}
	}
	if hotfix && modes > 0 && !flagPatch {
		return DeploymentIntent{}, &ValidationError{
			Field:  "flags",
			Reason: "hotfix always deploys a patch increment; version flags are not allowed",
		}
	}

	intent := DeploymentIntent{
		Environment:     env,
		Increment:       IncrementPatch,
		ExplicitVersion: flagVersion,
		Rebuild:         flagRebuild,
		Message:         flagMessage,
		Preview:         flagPreview,
		NoMonitor:       flagNoMonitor,
	}
	switch {
	case flagMajor:
		intent.Increment = IncrementMajor
	case flagMinor:
		intent.Increment = IncrementMinor
	}
	return intent, nil
}

func reportDeploy(cfg *config.WorkflowsConfig, result *DeploymentResult) error {
	if result.Aborted {
		ux.Info("Deployment cancelled. Nothing was changed.")
		return nil
	}

	if result.Preview {
		ux.Title("Deployment preview")
		ux.KeyValue("service", cfg.Service.Name)
		ux.KeyValue("tag", result.TagName)
		ux.KeyValue("previous", result.Previous.String())
		if result.Commit != "" {
			ux.KeyValue("commit", shortSHA(result.Commit))
		}
		if result.Rebuilt {
			ux.KeyValue("mode", "rebuild")
		}
		ux.Muted("Run again without --preview to deploy.")
		return nil
	}

	ux.Success(fmt.Sprintf("Pushed %s (%s)", result.TagName, shortSHA(result.Commit)))

	if cfg.Deploy.Target == "argocd" {
		ux.Info("ArgoCD will sync the new image once the pipeline publishes it.")
	}

	return reportMonitor(result.Monitor, runsFallbackURL(cfg))
}

// reportMonitor maps the monitor outcome to operator output and the process
// verdict. Unobserved outcomes are not deployment failures.
func reportMonitor(mr *MonitorResult, fallbackURL string) error {
	if mr == nil {
		return nil
	}
	url := fallbackURL
	if mr.Run != nil && mr.Run.URL != "" {
		url = mr.Run.URL
	}
	switch mr.Outcome {
	case MonitorSuccess:
		ux.Success("CI run succeeded.")
		return nil
	case MonitorFailure:
		return fmt.Errorf("CI run failed: %s", url)
	case MonitorNotFound:
		ux.Warning(fmt.Sprintf("No CI run was observed for the tag. Check %s manually.", url))
		return nil
	default: // MonitorTimeout
		ux.Warning(fmt.Sprintf("CI run still in progress after the monitoring budget. Follow it at %s", url))
		return nil
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
