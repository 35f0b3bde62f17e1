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

	"github.com/google/uuid"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
	"github.com/karmadev/karma-workflows/pkg/logging"
	"github.com/karmadev/karma-workflows/pkg/ux"
)

// tagGlob is the list pattern covering every tag the grammar can produce.
const tagGlob = "v*"

// DeploymentIntent is the ephemeral request for one deployment. Constructed
// per invocation, never persisted.
type DeploymentIntent struct {
	Environment Environment

	// Increment is used unless ExplicitVersion or Rebuild is set.
	Increment       IncrementKind
	ExplicitVersion string

	// Rebuild reuses latest(environment) verbatim instead of incrementing.
	Rebuild bool

	Message   string
	Preview   bool
	NoMonitor bool
}

// DeploymentResult reports what one invocation did.
type DeploymentResult struct {
	Aborted bool
	Preview bool

	TagName  string
	Version  Version
	Previous Version
	Commit   string
	Rebuilt  bool

	Monitor *MonitorResult
}

// Deployer turns a DeploymentIntent into a pushed tag, or a dry-run
// preview. Execution is single-threaded and synchronous; concurrent
// operators are handled by optimistic collision detection plus the remote's
// push verdict, not by locking.
type Deployer struct {
	Git     GitRepository
	Prompt  Prompter
	Monitor *RunMonitor // nil disables monitoring
	Config  *config.WorkflowsConfig
	Log     *logging.Logger
}

// NewDeployer wires a Deployer with the default logger.
func NewDeployer(git GitRepository, prompt Prompter, monitor *RunMonitor, cfg *config.WorkflowsConfig) *Deployer {
	return &Deployer{Git: git, Prompt: prompt, Monitor: monitor, Config: cfg, Log: logging.Default()}
}

// Deploy runs the full state machine:
//
//	START → VALIDATE → RESOLVE_VERSION → CHECK_COLLISION →
//	{CREATE | REBUILD} → PUSH → MONITOR → DONE
//
// Any confirmation gate can divert to ABORTED before a mutation happens.
// After PUSH there is no compensating action; a push failure is fatal and
// surfaced verbatim, never retried.
func (d *Deployer) Deploy(ctx context.Context, intent DeploymentIntent) (*DeploymentResult, error) {
	log := d.Log.With("deployment_id", uuid.NewString()[:8], "environment", intent.Environment.String())

	version, previous, err := d.resolveVersion(ctx, intent)
	if err != nil {
		return nil, err
	}

	tagName := RenderTag(intent.Environment, version)
	result := &DeploymentResult{
		TagName:  tagName,
		Version:  version,
		Previous: previous,
		Rebuilt:  intent.Rebuild,
	}

	// Preview stops here: the plan is printed without any prompt or
	// mutation, even when the working tree would trip a gate.
	if intent.Preview {
		result.Preview = true
		commit, err := d.Git.RevisionOf(ctx, "HEAD")
		if err == nil {
			result.Commit = commit
		}
		return result, nil
	}

	if err := d.validatePreconditions(ctx, intent); err != nil {
		return abortedOr(err)
	}

	// Collision check with the three-way resolution. Only the rebuild
	// branch ever mutates an existing tag.
	rebuild := intent.Rebuild
	for {
		exists, err := d.Git.TagExists(ctx, tagName)
		if err != nil {
			return nil, err
		}
		if !exists || rebuild {
			break
		}

		log.Warn("tag collision", "tag", tagName)
		choice, err := d.Prompt.Select(
			fmt.Sprintf("Tag %s already exists", tagName),
			[]string{collisionRebuild, collisionNewVersion, collisionCancel},
		)
		if err != nil {
			if errors.Is(err, ErrAborted) {
				return abortedOr(err)
			}
			// No way to ask (non-interactive); surface the collision
			// itself rather than the prompt failure.
			return nil, &CollisionError{TagName: tagName}
		}
		switch choice {
		case collisionRebuild:
			rebuild = true
		case collisionNewVersion:
			raw, err := d.Prompt.Input("New version", version.String())
			if err != nil {
				return abortedOr(err)
			}
			version, err = ResolveExplicit(raw)
			if err != nil {
				return nil, err
			}
			tagName = RenderTag(intent.Environment, version)
			result.Version = version
			result.TagName = tagName
		default:
			result.Aborted = true
			return result, nil
		}
	}
	result.Rebuilt = rebuild

	// The production gate sits immediately before the first mutation:
	// without the exact typed tag string nothing is created or pushed.
	if intent.Environment == EnvProduction {
		if err := d.confirmProduction(tagName); err != nil {
			return abortedOr(err)
		}
	}

	if rebuild {
		if err := d.rebuildTag(ctx, tagName, intent.Message); err != nil {
			return nil, err
		}
	} else {
		if err := d.Git.CreateTag(ctx, tagName, "", deployMessageFor(intent, d.Config.Service.Name)); err != nil {
			return nil, err
		}
	}

	log.Info("pushing tag", "tag", tagName, "rebuild", rebuild)
	if err := d.Git.PushTag(ctx, tagName); err != nil {
		return nil, &PushError{TagName: tagName, Err: err}
	}

	commit, err := d.Git.RevisionOf(ctx, tagName)
	if err == nil {
		result.Commit = commit
	}
	log.Info("tag pushed", "tag", tagName, "commit", result.Commit)

	if !intent.NoMonitor && d.Monitor != nil {
		expectSHA := ""
		if rebuild {
			expectSHA = result.Commit
		}
		mr := d.Monitor.Await(ctx, tagName, expectSHA)
		result.Monitor = &mr
	}

	return result, nil
}

const (
	collisionRebuild    = "Force rebuild (re-point the existing tag to the current commit)"
	collisionNewVersion = "Choose a different version"
	collisionCancel     = "Cancel"
)

// validatePreconditions runs the overridable warnings. Default answer at
// every gate is "do not proceed".
func (d *Deployer) validatePreconditions(ctx context.Context, intent DeploymentIntent) error {
	dirty, err := d.Git.HasUncommittedChanges(ctx)
	if err != nil {
		return err
	}
	if dirty {
		ux.Warning("You have uncommitted changes. The tag will point at the last commit, not your working tree.")
		ok, err := d.Prompt.Confirm("Deploy anyway?", "Uncommitted changes will not be included.", false)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	if intent.Environment == EnvProduction {
		branch, err := d.Git.CurrentBranch(ctx)
		if err != nil {
			return err
		}
		if !d.Config.IsAllowedBranch(branch) {
			ux.Warning(fmt.Sprintf("Current branch %q is not in the allowed production branches.", branch))
			ok, err := d.Prompt.Confirm("Deploy to production from this branch?", "", false)
			if err != nil {
				return err
			}
			if !ok {
				return ErrAborted
			}
		}
	}
	return nil
}

// confirmProduction is the deliberate high-friction gate unique to
// production: the operator must type the exact tag string.
func (d *Deployer) confirmProduction(tagName string) error {
	typed, err := d.Prompt.Input(
		fmt.Sprintf("Type %s to confirm the production deployment", tagName), "")
	if err != nil {
		return err
	}
	if typed != tagName {
		ux.Error(fmt.Sprintf("Confirmation did not match %s. Nothing was done.", tagName))
		return ErrAborted
	}
	return nil
}

// resolveVersion computes the version for the intent: explicit, rebuild of
// the latest, or an increment over the latest.
func (d *Deployer) resolveVersion(ctx context.Context, intent DeploymentIntent) (Version, Version, error) {
	tags, err := d.Git.ListTags(ctx, tagGlob)
	if err != nil {
		return Version{}, Version{}, err
	}
	latest := LatestVersion(intent.Environment, tags)

	if intent.ExplicitVersion != "" {
		v, err := ResolveExplicit(intent.ExplicitVersion)
		return v, latest, err
	}
	if intent.Rebuild {
		if latest.IsZero() {
			return Version{}, latest, &ValidationError{
				Field:  "rebuild",
				Reason: fmt.Sprintf("no existing %s tag to rebuild", intent.Environment),
			}
		}
		return latest, latest, nil
	}

	kind := intent.Increment
	if kind == "" {
		kind = IncrementPatch
	}
	next, err := NextVersion(latest, kind)
	return next, latest, err
}

// rebuildTag re-points an existing tag at HEAD: delete local and remote
// refs, then recreate. The remote delete happens before the new push so the
// shared state never carries two commits under one name.
func (d *Deployer) rebuildTag(ctx context.Context, tagName, message string) error {
	exists, err := d.Git.TagExists(ctx, tagName)
	if err != nil {
		return err
	}
	if exists {
		if err := d.Git.DeleteTag(ctx, tagName); err != nil {
			return err
		}
		if err := d.Git.DeleteRemoteTag(ctx, tagName); err != nil {
			ux.Warning(fmt.Sprintf("Could not delete remote tag %s (it may not exist remotely): %v", tagName, err))
		}
	}
	if message == "" {
		message = "rebuild"
	}
	return d.Git.CreateTag(ctx, tagName, "", message)
}

func deployMessageFor(intent DeploymentIntent, service string) string {
	if intent.Message != "" {
		return intent.Message
	}
	return fmt.Sprintf("Deploy %s to %s", service, intent.Environment)
}

// abortedOr maps operator cancellation to a clean aborted result and
// passes every other error through.
func abortedOr(err error) (*DeploymentResult, error) {
	if errors.Is(err, ErrAborted) {
		return &DeploymentResult{Aborted: true}, nil
	}
	return nil, err
}
