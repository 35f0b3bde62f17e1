// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
	"github.com/karmadev/karma-workflows/pkg/logging"
	"github.com/karmadev/karma-workflows/pkg/ux"
)

// RunStatus is the CI verdict shown next to a history entry. Unknown is a
// distinct state and is never presented as success.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
	RunUnknown RunStatus = "unknown"
)

// HistoryEntry is one line of the deployment history for an environment.
type HistoryEntry struct {
	Tag    Tag
	Parsed ParsedTag
	Status RunStatus
}

// StagingDirectory answers whether a service has a staging track at all.
// Satisfied by config.WorkflowsConfig.
type StagingDirectory interface {
	SupportsStaging(service string) bool
}

// DefaultHistoryLimit bounds the history listing when no limit is given.
const DefaultHistoryLimit = 20

// RollbackSelector re-deploys a previously deployed version by synthesizing
// a rollback tag that points at the target tag's commit. The target tag
// itself is never moved or deleted.
type RollbackSelector struct {
	Git     GitRepository
	Staging StagingDirectory
	Prompt  Prompter
	Monitor *RunMonitor // nil disables monitoring
	Runs    RunService  // nil disables history run statuses
	Config  *config.WorkflowsConfig
	Log     *logging.Logger

	// Now stamps the synthesized tag name; injectable for tests.
	Now func() time.Time
}

// NewRollbackSelector wires a selector with the default clock and logger.
func NewRollbackSelector(git GitRepository, prompt Prompter, monitor *RunMonitor, runs RunService, cfg *config.WorkflowsConfig) *RollbackSelector {
	return &RollbackSelector{
		Git:     git,
		Staging: cfg,
		Prompt:  prompt,
		Monitor: monitor,
		Runs:    runs,
		Config:  cfg,
		Log:     logging.Default(),
		Now:     time.Now,
	}
}

// RollbackResult reports a completed (or aborted) rollback.
type RollbackResult struct {
	Aborted bool

	TagName   string // synthesized rollback tag
	TargetTag string // the tag rolled back to
	Commit    string

	Monitor *MonitorResult
}

// History lists the environment's deployments, newest version first.
// Rollback markers sort directly after their base tag, newest stamp first,
// so the display reads as "this version, then its rollbacks". When a
// RunService is available each entry carries the CI verdict for its tag.
func (r *RollbackSelector) History(ctx context.Context, env Environment, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	tags, err := r.Git.ListTags(ctx, tagGlob)
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	for _, tag := range tags {
		parsed, err := ParseTag(tag.Name)
		if err != nil || parsed.Environment != env {
			continue
		}
		entries = append(entries, HistoryEntry{Tag: tag, Parsed: parsed, Status: RunUnknown})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Parsed, entries[j].Parsed
		if c := a.Version.Compare(b.Version); c != 0 {
			return c > 0
		}
		// Base tag before its rollback markers, markers newest first.
		if a.Rollback != b.Rollback {
			return !a.Rollback
		}
		return a.RollbackStamp > b.RollbackStamp
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	r.annotateRunStatus(ctx, entries)
	return entries, nil
}

// annotateRunStatus fills in CI verdicts from a single recent-runs query.
// Best effort: a failed query leaves everything unknown.
func (r *RollbackSelector) annotateRunStatus(ctx context.Context, entries []HistoryEntry) {
	if r.Runs == nil || len(entries) == 0 {
		return
	}
	runs, err := r.Runs.ListRecentRuns(ctx, 100)
	if err != nil {
		r.Log.Debug("history run status query failed", "error", err)
		return
	}

	verdicts := make(map[string]RunStatus, len(runs))
	for _, run := range runs {
		name := strings.TrimPrefix(run.HeadBranch, "refs/tags/")
		if _, seen := verdicts[name]; seen {
			continue // runs arrive newest first; keep the latest verdict
		}
		if run.Status != "completed" {
			continue
		}
		if run.Conclusion == "success" {
			verdicts[name] = RunSuccess
		} else {
			verdicts[name] = RunFailure
		}
	}
	for i := range entries {
		if status, ok := verdicts[entries[i].Tag.Name]; ok {
			entries[i].Status = status
		}
	}
}

// ValidateTarget checks that a rollback target names an existing deployment
// tag of the requested environment. Rollback markers are not valid targets;
// roll back to the underlying base tag instead.
func (r *RollbackSelector) ValidateTarget(ctx context.Context, env Environment, target string) (ParsedTag, error) {
	parsed, err := ParseTag(target)
	if err != nil {
		return ParsedTag{}, &RollbackTargetError{Target: target, Reason: "not a valid deployment tag"}
	}
	if parsed.Environment != env {
		return ParsedTag{}, &RollbackTargetError{
			Target: target,
			Reason: fmt.Sprintf("belongs to %s, not %s", parsed.Environment, env),
		}
	}
	if parsed.Rollback {
		return ParsedTag{}, &RollbackTargetError{
			Target: target,
			Reason: "is itself a rollback marker; target its base tag",
		}
	}

	exists, err := r.Git.TagExists(ctx, target)
	if err != nil {
		return ParsedTag{}, err
	}
	if !exists {
		return ParsedTag{}, &RollbackTargetError{Target: target, Reason: "no such tag"}
	}
	return parsed, nil
}

// Synthesize builds the rollback tag name and its annotation message. The
// message records who rolled back, from which version, to which.
func (r *RollbackSelector) Synthesize(ctx context.Context, env Environment, target ParsedTag) (name, message string) {
	name = RollbackTagName(target.TagName(), r.Now().Unix())

	initiator, err := r.Git.UserName(ctx)
	if err != nil || initiator == "" {
		initiator = "unknown"
	}

	var current Version
	if tags, err := r.Git.ListTags(ctx, tagGlob); err == nil {
		current = LatestVersion(env, tags)
	}

	message = fmt.Sprintf("Rollback %s %s: %s -> %s (by %s)",
		r.Config.Service.Name, env, current, target.Version, initiator)
	return name, message
}

// Execute runs a full rollback: staging guard, target validation,
// production confirmation, then a synthesized tag created at the target's
// commit and pushed. The CI system sees an ordinary tag push and redeploys
// the old code.
func (r *RollbackSelector) Execute(ctx context.Context, env Environment, target string) (*RollbackResult, error) {
	// The staging guard comes before anything else, including tag
	// existence checks: a service without a staging track cannot roll
	// staging back no matter what tags exist.
	if env == EnvStaging && !r.Staging.SupportsStaging(r.Config.Service.Name) {
		return nil, &RollbackTargetError{
			Reason: fmt.Sprintf("service %s has no staging track", r.Config.Service.Name),
		}
	}

	parsed, err := r.ValidateTarget(ctx, env, target)
	if err != nil {
		return nil, err
	}

	commit, err := r.Git.RevisionOf(ctx, target)
	if err != nil {
		return nil, err
	}

	if env == EnvProduction {
		if err := r.confirmProductionRollback(ctx, target, commit); err != nil {
			if errors.Is(err, ErrAborted) {
				return &RollbackResult{Aborted: true}, nil
			}
			return nil, err
		}
	}

	name, message := r.Synthesize(ctx, env, parsed)
	log := r.Log.With("environment", env.String(), "target", target, "rollback_tag", name)

	if err := r.Git.CreateTag(ctx, name, commit, message); err != nil {
		return nil, err
	}
	log.Info("rollback tag created", "commit", commit)

	if err := r.Git.PushTag(ctx, name); err != nil {
		return nil, &PushError{TagName: name, Err: err}
	}
	log.Info("rollback tag pushed")

	result := &RollbackResult{TagName: name, TargetTag: target, Commit: commit}
	if r.Monitor != nil {
		mr := r.Monitor.Await(ctx, name, "")
		result.Monitor = &mr
	}
	return result, nil
}

// confirmProductionRollback shows what would be undone, then requires the
// operator to type the exact target tag.
func (r *RollbackSelector) confirmProductionRollback(ctx context.Context, target, commit string) error {
	if lines, err := r.Git.CommitRange(ctx, target, "HEAD"); err == nil && len(lines) > 0 {
		ux.Warning(fmt.Sprintf("Rolling back to %s undoes %d commit(s):", target, len(lines)))
		shown := lines
		if len(shown) > 10 {
			shown = shown[:10]
		}
		for _, line := range shown {
			ux.Muted("  " + line)
		}
		if len(lines) > len(shown) {
			ux.Muted(fmt.Sprintf("  ... and %d more", len(lines)-len(shown)))
		}
	}

	typed, err := r.Prompt.Input(
		fmt.Sprintf("Type %s to confirm the production rollback", target), "")
	if err != nil {
		return err
	}
	if typed != target {
		ux.Error(fmt.Sprintf("Confirmation did not match %s. Nothing was done.", target))
		return ErrAborted
	}
	return nil
}
