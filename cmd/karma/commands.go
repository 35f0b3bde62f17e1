// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
	"github.com/karmadev/karma-workflows/pkg/ux"
)

// buildVersion is stamped by the release pipeline via -ldflags.
var buildVersion = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "karma",
		Short: "Tag-driven deployment workflows",
		Long: `karma deploys services by creating and pushing version tags that the
CI pipeline reacts to. It resolves the next version per environment,
guards production behind a typed confirmation, and watches the
triggered pipeline run to completion.`,
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ux.InitPersonality()
			if flagPersonality != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(flagPersonality))
			}
			return config.Load()
		},
	}

	deployCmd = &cobra.Command{
		Use:   "deploy <dev|staging|prod|hotfix>",
		Short: "Tag and deploy the service to an environment",
		Long: `Deploy resolves the next version for the environment, creates the
annotated tag at HEAD and pushes it. The push is the deployment
trigger; the CI run is then monitored to completion.

The hotfix token deploys to production with a forced patch increment.`,
		Args: cobra.ExactArgs(1),
		RunE: runDeploy,
	}

	rollbackCmd = &cobra.Command{
		Use:   "rollback <dev|staging|prod>",
		Short: "Redeploy a previously deployed version",
		Long: `Rollback creates a new tag pointing at an earlier deployment's commit
and pushes it, making the CI pipeline rebuild the old code. The
original tags are never moved or deleted. Without --to, pick the
target interactively from the environment's history.`,
		Args: cobra.ExactArgs(1),
		RunE: runRollback,
	}

	historyCmd = &cobra.Command{
		Use:   "history <dev|staging|prod>",
		Short: "List an environment's deployments with CI verdicts",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
)

// Deploy flags
var (
	flagMajor     bool
	flagMinor     bool
	flagPatch     bool
	flagVersion   string
	flagRebuild   bool
	flagMessage   string
	flagPreview   bool
	flagNoMonitor bool
)

// Rollback and history flags
var (
	flagRollbackTo string
	flagLimit      int
)

var flagPersonality string

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPersonality, "personality", "",
		"output style: full, minimal or machine (default auto-detected)")

	deployCmd.Flags().BoolVar(&flagMajor, "major", false, "increment the major version")
	deployCmd.Flags().BoolVar(&flagMinor, "minor", false, "increment the minor version")
	deployCmd.Flags().BoolVar(&flagPatch, "patch", false, "increment the patch version (default)")
	deployCmd.Flags().StringVar(&flagVersion, "version", "", "deploy an explicit X.Y.Z version")
	deployCmd.Flags().BoolVar(&flagRebuild, "rebuild", false, "re-point the latest tag at HEAD instead of incrementing")
	deployCmd.Flags().StringVarP(&flagMessage, "message", "m", "", "tag annotation message")
	deployCmd.Flags().BoolVar(&flagPreview, "preview", false, "show what would be deployed without doing it")
	deployCmd.Flags().BoolVar(&flagNoMonitor, "no-monitor", false, "skip watching the CI run")

	rollbackCmd.Flags().StringVar(&flagRollbackTo, "to", "", "target tag to roll back to (interactive selection when omitted)")
	rollbackCmd.Flags().BoolVar(&flagNoMonitor, "no-monitor", false, "skip watching the CI run")
	rollbackCmd.Flags().IntVar(&flagLimit, "limit", DefaultHistoryLimit, "maximum history entries to offer")

	historyCmd.Flags().IntVar(&flagLimit, "limit", DefaultHistoryLimit, "maximum entries to show")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(historyCmd)
}

// newRunMonitor builds a monitor when CI is configured, nil otherwise.
func newRunMonitor(cfg *config.WorkflowsConfig) *RunMonitor {
	if cfg.CI.Repo == "" {
		return nil
	}
	return NewRunMonitor(NewActionsClient(cfg.CI))
}
