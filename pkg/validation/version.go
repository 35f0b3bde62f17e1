// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for values that end up in
// git refs or subprocess calls. Using these validators keeps operator
// input from producing malformed tags or injected command arguments.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// versionPattern matches a bare semantic version triple.
// No leading zeros: the string form of a version must be unique.
var versionPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)$`)

// serviceNamePattern matches valid service names: lowercase alphanumerics
// and hyphens, starting with a letter, max 63 characters (DNS label rules).
var serviceNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)

// ValidateVersionString validates a bare X.Y.Z version triple.
//
// The triple must be plain non-negative integers without leading zeros,
// no "v" prefix, no pre-release or build suffix. The semver package
// double-checks the canonical form.
func ValidateVersionString(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("invalid version format: %q (expected X.Y.Z with non-negative integers)", version)
	}
	if !semver.IsValid("v" + version) {
		return fmt.Errorf("invalid semantic version: %q", version)
	}
	return nil
}

// SanitizeVersion normalizes and validates a version string.
// Returns the trimmed version (with any leading "v" removed) if valid.
func SanitizeVersion(version string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if err := ValidateVersionString(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateServiceName validates a configured service name before it is
// embedded in tag messages and CI queries.
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if !serviceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid service name: %q (must be a lowercase DNS label)", name)
	}
	return nil
}
