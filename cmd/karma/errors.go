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
)

// ErrInvalidIncrementKind is returned for any increment kind other than
// major, minor or patch.
var ErrInvalidIncrementKind = errors.New("invalid increment kind")

// ErrAborted means the operator declined a confirmation gate. Nothing was
// mutated; the invocation exits cleanly.
var ErrAborted = errors.New("aborted by operator")

// TagParseError reports a tag string that does not match the tag grammar.
type TagParseError struct {
	Input  string
	Reason string
}

func (e *TagParseError) Error() string {
	return fmt.Sprintf("cannot parse tag %q: %s", e.Input, e.Reason)
}

// ValidationError reports malformed operator input. Fatal, reported before
// any mutation is attempted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CollisionError reports that the rendered tag already exists. Interactive
// sessions resolve it via force-rebuild, a different version, or cancel;
// non-interactive ones get this error back.
type CollisionError struct {
	TagName string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("tag %s already exists", e.TagName)
}

// PushError reports a remote rejection of the tag push. Fatal for the
// invocation and never retried automatically; the remote's verdict is the
// authoritative collision signal.
type PushError struct {
	TagName string
	Err     error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("failed to push tag %s: %v", e.TagName, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }

// RollbackTargetError reports an unusable rollback target: the tag is
// missing, belongs to another environment, or staging was requested for a
// service that has no staging track.
type RollbackTargetError struct {
	Target string
	Reason string
}

func (e *RollbackTargetError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("rollback refused: %s", e.Reason)
	}
	return fmt.Sprintf("rollback target %s: %s", e.Target, e.Reason)
}
