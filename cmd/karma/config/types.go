// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

// WorkflowsConfig is the per-service deployment configuration, read once at
// startup from .karma/workflows.yaml with KARMA_* environment overrides.
type WorkflowsConfig struct {
	// Service identifies the service this working copy deploys.
	Service ServiceConfig `yaml:"service" validate:"required"`

	// Deploy controls branch checks and post-deploy behavior.
	Deploy DeployConfig `yaml:"deploy"`

	// Features toggles optional CLI modes.
	Features FeatureConfig `yaml:"features"`

	// CI locates the external pipeline runner for run monitoring.
	CI CIConfig `yaml:"ci"`

	// Rollback holds the staging allow-list.
	Rollback RollbackConfig `yaml:"rollback"`
}

type ServiceConfig struct {
	Name string `yaml:"name" validate:"required,hostname_rfc1123"`
}

type DeployConfig struct {
	// DefaultBranch is where deployments normally happen from.
	DefaultBranch string `yaml:"default_branch" validate:"required"`

	// AllowedBranches gates production deploys; the operator can still
	// override the warning interactively.
	AllowedBranches []string `yaml:"allowed_branches"`

	// TagPrefix is reserved for future grammars; only "v" is supported.
	TagPrefix string `yaml:"tag_prefix" validate:"omitempty,eq=v"`

	// Target names the deployment target kind (e.g. "argocd", "none").
	// Only used to decide whether to print a post-deploy sync hint.
	Target string `yaml:"target"`
}

type FeatureConfig struct {
	// Hotfix enables the hotfix environment token.
	Hotfix bool `yaml:"hotfix"`

	// Preview enables the --preview dry-run flag.
	Preview bool `yaml:"preview"`
}

type CIConfig struct {
	// Provider is the CI system kind. Only github is implemented.
	Provider string `yaml:"provider" validate:"omitempty,oneof=github"`

	// APIBaseURL overrides the API endpoint (GitHub Enterprise).
	APIBaseURL string `yaml:"api_base_url" validate:"omitempty,url"`

	// Repo is the owner/name slug. Empty disables run monitoring.
	Repo string `yaml:"repo"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env"`
}

type RollbackConfig struct {
	// StagingServices is the fixed allow-list of services known to use
	// staging. Rolling back staging for any other service is refused.
	StagingServices []string `yaml:"staging_services"`
}

// SupportsStaging reports whether the named service has a staging track.
// This satisfies the rollback engine's StagingDirectory lookup.
func (c *WorkflowsConfig) SupportsStaging(service string) bool {
	for _, s := range c.Rollback.StagingServices {
		if s == service {
			return true
		}
	}
	return false
}

// IsAllowedBranch reports whether production may deploy from the branch.
func (c *WorkflowsConfig) IsAllowedBranch(branch string) bool {
	if len(c.Deploy.AllowedBranches) == 0 {
		return branch == c.Deploy.DefaultBranch
	}
	for _, b := range c.Deploy.AllowedBranches {
		if b == branch {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() WorkflowsConfig {
	return WorkflowsConfig{
		Deploy: DeployConfig{
			DefaultBranch:   "main",
			AllowedBranches: []string{"main", "master"},
			TagPrefix:       "v",
			Target:          "none",
		},
		Features: FeatureConfig{
			Hotfix:  true,
			Preview: true,
		},
		CI: CIConfig{
			Provider: "github",
			TokenEnv: "GITHUB_TOKEN",
		},
	}
}
