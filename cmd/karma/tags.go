// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"regexp"
	"strconv"
)

// Tag grammar, bit-exact:
//
//	production   v{M}.{N}.{P}                      v2.1.0
//	staging      v{M}.{N}.{P}-staging              v2.1.0-staging
//	development  v{M}.{N}.{P}-dev                  v2.1.0-dev
//	rollback     <base-tag>-rollback-{unixSeconds} v2.1.0-rollback-1724850000
//
// The rendered form of (environment, version, rollback stamp) is a
// bijection: numeric segments admit no leading zeros, so every valid tag
// string decodes to exactly one triple and re-renders to the same string.

// Version is a semantic version triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// String renders the bare triple without prefix or qualifier.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 ordering by (major, minor, patch).
func (v Version) Compare(o Version) int {
	for _, d := range []int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

// IsZero reports the 0.0.0 seed version.
func (v Version) IsZero() bool { return v == Version{} }

// ParsedTag is the decoded form of a tag string.
type ParsedTag struct {
	Environment Environment
	Version     Version

	// Rollback marks a rollback tag; RollbackStamp is its unix-seconds
	// disambiguator. Zero value for ordinary deployment tags.
	Rollback      bool
	RollbackStamp int64
}

// TagName re-renders the parsed tag. ParseTag(p.TagName()) == p for every
// valid ParsedTag.
func (p ParsedTag) TagName() string {
	name := RenderTag(p.Environment, p.Version)
	if p.Rollback {
		name = RollbackTagName(name, p.RollbackStamp)
	}
	return name
}

// RenderTag renders the deployment tag string for an environment and
// version. Pure function over its inputs.
func RenderTag(env Environment, v Version) string {
	return "v" + v.String() + env.Qualifier()
}

// RollbackTagName renders the rollback marker tag for a base tag and a
// unix-seconds timestamp.
func RollbackTagName(baseTag string, unixSeconds int64) string {
	return fmt.Sprintf("%s-rollback-%d", baseTag, unixSeconds)
}

var tagPattern = regexp.MustCompile(
	`^v(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)(-dev|-staging)?(?:-rollback-(0|[1-9][0-9]*))?$`)

// ParseTag decodes a tag string into its (environment, version, rollback)
// triple. Strings outside the grammar fail with a *TagParseError.
func ParseTag(s string) (ParsedTag, error) {
	m := tagPattern.FindStringSubmatch(s)
	if m == nil {
		return ParsedTag{}, &TagParseError{Input: s, Reason: "does not match the tag grammar"}
	}

	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return ParsedTag{}, &TagParseError{Input: s, Reason: "major segment is not a valid integer"}
	}
	if v.Minor, err = strconv.Atoi(m[2]); err != nil {
		return ParsedTag{}, &TagParseError{Input: s, Reason: "minor segment is not a valid integer"}
	}
	if v.Patch, err = strconv.Atoi(m[3]); err != nil {
		return ParsedTag{}, &TagParseError{Input: s, Reason: "patch segment is not a valid integer"}
	}

	env := EnvProduction
	switch m[4] {
	case "-dev":
		env = EnvDevelopment
	case "-staging":
		env = EnvStaging
	}

	p := ParsedTag{Environment: env, Version: v}
	if m[5] != "" {
		stamp, err := strconv.ParseInt(m[5], 10, 64)
		if err != nil {
			return ParsedTag{}, &TagParseError{Input: s, Reason: "rollback timestamp is not a valid integer"}
		}
		p.Rollback = true
		p.RollbackStamp = stamp
	}
	return p, nil
}
