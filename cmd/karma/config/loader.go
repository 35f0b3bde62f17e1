// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/karmadev/karma-workflows/pkg/validation"
)

// DefaultPath is where the config lives inside a service's working copy.
const DefaultPath = ".karma/workflows.yaml"

var (
	// Global is a singleton instance
	Global WorkflowsConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable. The path is
// taken from KARMA_CONFIG when set, DefaultPath otherwise.
func Load() error {
	var err error
	once.Do(func() {
		path := os.Getenv("KARMA_CONFIG")
		if path == "" {
			path = DefaultPath
		}
		Global, err = loadFrom(path)
	})
	return err
}

func loadFrom(path string) (WorkflowsConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment overrides; a missing file is fine
		// as long as the service name comes from somewhere.
	default:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides layers KARMA_* environment variables over the file.
func applyEnvOverrides(cfg *WorkflowsConfig) {
	if v := os.Getenv("KARMA_SERVICE_NAME"); v != "" {
		cfg.Service.Name = v
	}
	if v := os.Getenv("KARMA_DEFAULT_BRANCH"); v != "" {
		cfg.Deploy.DefaultBranch = v
	}
	if v := os.Getenv("KARMA_ALLOWED_BRANCHES"); v != "" {
		cfg.Deploy.AllowedBranches = splitList(v)
	}
	if v := os.Getenv("KARMA_DEPLOY_TARGET"); v != "" {
		cfg.Deploy.Target = v
	}
	if v := os.Getenv("KARMA_CI_REPO"); v != "" {
		cfg.CI.Repo = v
	}
	if v := os.Getenv("KARMA_CI_TOKEN_ENV"); v != "" {
		cfg.CI.TokenEnv = v
	}
	if v := os.Getenv("KARMA_STAGING_SERVICES"); v != "" {
		cfg.Rollback.StagingServices = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks the structural constraints on a config.
func Validate(cfg WorkflowsConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var invalid validator.ValidationErrors
		if ok := asValidationErrors(err, &invalid); ok && len(invalid) > 0 {
			first := invalid[0]
			return fmt.Errorf("invalid config: field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	// The service name ends up in git refs and CI queries, so it is held
	// to DNS-label rules, stricter than hostname_rfc1123.
	if err := validation.ValidateServiceName(cfg.Service.Name); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}
