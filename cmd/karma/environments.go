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
)

// Environment identifies an independent deployment target. Each environment
// has its own version track: development, staging and production advance
// independently so a development build can never overtake production
// numerically.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Qualifier returns the tag suffix that marks this environment's tags.
// Production tags carry no qualifier.
func (e Environment) Qualifier() string {
	switch e {
	case EnvDevelopment:
		return "-dev"
	case EnvStaging:
		return "-staging"
	default:
		return ""
	}
}

// String returns the canonical environment name.
func (e Environment) String() string { return string(e) }

// ParseEnvironmentToken maps a CLI environment token to an Environment.
// The hotfix token is production with a fixed patch-increment policy; the
// second return value reports that mode.
func ParseEnvironmentToken(token string) (Environment, bool, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "dev", "development":
		return EnvDevelopment, false, nil
	case "staging":
		return EnvStaging, false, nil
	case "prod", "production":
		return EnvProduction, false, nil
	case "hotfix":
		return EnvProduction, true, nil
	default:
		return "", false, &ValidationError{
			Field:  "environment",
			Value:  token,
			Reason: fmt.Sprintf("unknown environment %q (expected dev, staging, prod or hotfix)", token),
		}
	}
}
