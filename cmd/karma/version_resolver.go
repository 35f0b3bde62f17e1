// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/karmadev/karma-workflows/pkg/validation"
)

// IncrementKind selects which version field to bump.
type IncrementKind string

const (
	IncrementMajor IncrementKind = "major"
	IncrementMinor IncrementKind = "minor"
	IncrementPatch IncrementKind = "patch"
)

// LatestVersion returns the maximum version among the environment's
// deployment tags, or 0.0.0 when none exist. The zero seed is what a
// brand-new service starts from.
//
// Tags that fail to parse, belong to another environment, or are rollback
// markers do not participate: the version track is derived from ordinary
// deployment tags only.
func LatestVersion(env Environment, tags []Tag) Version {
	var latest Version
	for _, t := range tags {
		p, err := ParseTag(t.Name)
		if err != nil {
			continue
		}
		if p.Environment != env || p.Rollback {
			continue
		}
		if p.Version.Compare(latest) > 0 {
			latest = p.Version
		}
	}
	return latest
}

// NextVersion bumps one field and zeroes every lower-order field.
func NextVersion(v Version, kind IncrementKind) (Version, error) {
	switch kind {
	case IncrementMajor:
		return Version{Major: v.Major + 1}, nil
	case IncrementMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case IncrementPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	default:
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidIncrementKind, kind)
	}
}

// ResolveExplicit validates and decodes a caller-supplied X.Y.Z version.
func ResolveExplicit(versionString string) (Version, error) {
	normalized, err := validation.SanitizeVersion(versionString)
	if err != nil {
		return Version{}, &ValidationError{Field: "version", Value: versionString, Reason: err.Error()}
	}

	parts := strings.SplitN(normalized, ".", 3)
	var v Version
	if v.Major, err = strconv.Atoi(parts[0]); err != nil {
		return Version{}, &ValidationError{Field: "version", Value: versionString, Reason: err.Error()}
	}
	if v.Minor, err = strconv.Atoi(parts[1]); err != nil {
		return Version{}, &ValidationError{Field: "version", Value: versionString, Reason: err.Error()}
	}
	if v.Patch, err = strconv.Atoi(parts[2]); err != nil {
		return Version{}, &ValidationError{Field: "version", Value: versionString, Reason: err.Error()}
	}
	return v, nil
}
