// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tag is a named pointer to a revision, with provenance read from git.
// Immutable once pushed by convention; only the force-rebuild path ever
// re-points one.
type Tag struct {
	Name      string
	Commit    string
	Author    string
	Message   string
	CreatedAt time.Time
}

// GitRepository is the engine's only view of version-control state. The
// core never touches a working tree beyond these operations, which keeps
// the orchestrator testable against an in-memory fake.
type GitRepository interface {
	// ListTags returns all tags matching a glob pattern (e.g. "v*"),
	// with commit, author, date and message populated.
	ListTags(ctx context.Context, pattern string) ([]Tag, error)

	// TagExists reports whether a tag with the exact name exists locally.
	TagExists(ctx context.Context, name string) (bool, error)

	// CreateTag creates an annotated tag at the given commit, or at HEAD
	// when commit is empty.
	CreateTag(ctx context.Context, name, commit, message string) error

	// DeleteTag removes the local tag ref.
	DeleteTag(ctx context.Context, name string) error

	// DeleteRemoteTag removes the tag ref from origin.
	DeleteRemoteTag(ctx context.Context, name string) error

	// PushTag publishes the tag to origin. This is the actual deployment
	// trigger: the external CI system reacts to the push.
	PushTag(ctx context.Context, name string) error

	// RevisionOf resolves a ref (tag, branch, HEAD) to a commit SHA.
	RevisionOf(ctx context.Context, ref string) (string, error)

	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context) (string, error)

	// HasUncommittedChanges reports whether the working tree is dirty.
	HasUncommittedChanges(ctx context.Context) (bool, error)

	// CommitRange returns one-line summaries of commits in from..to.
	CommitRange(ctx context.Context, from, to string) ([]string, error)

	// UserName returns the configured git user.name, for rollback
	// provenance messages.
	UserName(ctx context.Context) (string, error)
}

// CLIGitRepository implements GitRepository by shelling out to git through
// a CommandRunner.
type CLIGitRepository struct {
	runner CommandRunner
	dir    string
}

// NewCLIGitRepository creates a git-backed repository rooted at dir
// (empty means the current directory).
func NewCLIGitRepository(runner CommandRunner, dir string) *CLIGitRepository {
	return &CLIGitRepository{runner: runner, dir: dir}
}

func (g *CLIGitRepository) git(ctx context.Context, args ...string) ([]byte, error) {
	return g.runner.RunInDir(ctx, g.dir, "git", args...)
}

// listFormat keeps one tag per line: name, peeled commit, object, unix
// creator date, tagger, author, subject. Tab-separated; tagger is set for
// annotated tags, author for lightweight ones.
const listFormat = "%(refname:short)%09%(*objectname)%09%(objectname)%09%(creatordate:unix)%09%(taggername)%09%(authorname)%09%(subject)"

// ListTags returns all tags matching the glob pattern.
func (g *CLIGitRepository) ListTags(ctx context.Context, pattern string) ([]Tag, error) {
	out, err := g.git(ctx, "for-each-ref", "refs/tags/"+pattern, "--format", listFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	var tags []Tag
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 7)
		if len(fields) < 7 {
			continue
		}
		tag := Tag{Name: fields[0], Message: fields[6]}

		// Annotated tags peel to the tagged commit; lightweight tags
		// are the commit object itself.
		if fields[1] != "" {
			tag.Commit = fields[1]
		} else {
			tag.Commit = fields[2]
		}
		if unix, err := strconv.ParseInt(fields[3], 10, 64); err == nil {
			tag.CreatedAt = time.Unix(unix, 0).UTC()
		}
		if fields[4] != "" {
			tag.Author = fields[4]
		} else {
			tag.Author = fields[5]
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// TagExists reports whether the exact tag name exists locally.
func (g *CLIGitRepository) TagExists(ctx context.Context, name string) (bool, error) {
	out, err := g.git(ctx, "tag", "--list", name)
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// CreateTag creates an annotated tag at the given commit (HEAD if empty).
func (g *CLIGitRepository) CreateTag(ctx context.Context, name, commit, message string) error {
	args := []string{"tag", "-a", name}
	if commit != "" {
		args = append(args, commit)
	}
	args = append(args, "-m", message)
	if _, err := g.git(ctx, args...); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	return nil
}

// DeleteTag removes the local tag ref.
func (g *CLIGitRepository) DeleteTag(ctx context.Context, name string) error {
	if _, err := g.git(ctx, "tag", "-d", name); err != nil {
		return fmt.Errorf("failed to delete local tag %s: %w", name, err)
	}
	return nil
}

// DeleteRemoteTag removes the tag ref from origin.
func (g *CLIGitRepository) DeleteRemoteTag(ctx context.Context, name string) error {
	if _, err := g.git(ctx, "push", "origin", ":refs/tags/"+name); err != nil {
		return fmt.Errorf("failed to delete remote tag %s: %w", name, err)
	}
	return nil
}

// PushTag publishes the tag to origin.
func (g *CLIGitRepository) PushTag(ctx context.Context, name string) error {
	_, err := g.git(ctx, "push", "origin", "refs/tags/"+name)
	return err
}

// RevisionOf resolves a ref to its commit SHA.
func (g *CLIGitRepository) RevisionOf(ctx context.Context, ref string) (string, error) {
	out, err := g.git(ctx, "rev-parse", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentBranch returns the checked-out branch name.
func (g *CLIGitRepository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to determine current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HasUncommittedChanges reports whether the working tree is dirty.
func (g *CLIGitRepository) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check working tree: %w", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// CommitRange returns one-line summaries of the commits in from..to.
func (g *CLIGitRepository) CommitRange(ctx context.Context, from, to string) ([]string, error) {
	out, err := g.git(ctx, "log", "--oneline", fmt.Sprintf("%s..%s", from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to list commits %s..%s: %w", from, to, err)
	}
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// UserName returns the configured git user.name.
func (g *CLIGitRepository) UserName(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "config", "user.name")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

var _ GitRepository = (*CLIGitRepository)(nil)
