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
	"time"

	"github.com/karmadev/karma-workflows/pkg/logging"
	"github.com/karmadev/karma-workflows/pkg/ux"
)

// WorkflowRun is the engine's view of an external CI pipeline execution.
// Runs are owned and observed, never created, by this tool.
type WorkflowRun struct {
	ID         int64
	Name       string
	Status     string // queued, in_progress, completed
	Conclusion string // success, failure, cancelled, ... (set when completed)
	HeadBranch string // trigger ref: tag name or refs/tags/<tag>
	HeadSHA    string
	URL        string
}

// RunService queries the external CI system for recent runs.
type RunService interface {
	ListRecentRuns(ctx context.Context, limit int) ([]WorkflowRun, error)

	// RunsPageURL is the manual-monitoring fallback shown when a run
	// cannot be observed.
	RunsPageURL() string
}

// MonitorOutcome is the tri-state result of observing a run. The monitor
// never blocks indefinitely; unobserved outcomes are not failures.
type MonitorOutcome string

const (
	MonitorSuccess  MonitorOutcome = "success"
	MonitorFailure  MonitorOutcome = "failure"
	MonitorNotFound MonitorOutcome = "not_found"
	MonitorTimeout  MonitorOutcome = "timeout"
)

// MonitorResult carries the outcome and, when found, the observed run.
type MonitorResult struct {
	Outcome MonitorOutcome
	Run     *WorkflowRun
}

// RunMonitor polls the external CI system for the run triggered by a
// pushed tag. No event channel is available, so this is cooperative
// busy-waiting on a fixed cadence: a short discovery interval with a small
// bounded attempt count, then a coarser status interval under an overall
// wall-clock budget.
type RunMonitor struct {
	Runs RunService

	DiscoveryInterval time.Duration
	DiscoveryAttempts int
	PollInterval      time.Duration
	Budget            time.Duration

	// Sleep and Now are injectable for deterministic tests.
	Sleep func(time.Duration)
	Now   func() time.Time

	Log *logging.Logger
}

// NewRunMonitor creates a monitor with the default cadence.
func NewRunMonitor(runs RunService) *RunMonitor {
	return &RunMonitor{
		Runs:              runs,
		DiscoveryInterval: 5 * time.Second,
		DiscoveryAttempts: 6,
		PollInterval:      15 * time.Second,
		Budget:            15 * time.Minute,
		Sleep:             time.Sleep,
		Now:               time.Now,
		Log:               logging.Default(),
	}
}

// matches reports whether a run was triggered by the tag. When expectSHA is
// set (after a force rebuild) the run must also point at that commit, so a
// stale run still associated with the old tag ref is not misattributed.
func matches(run WorkflowRun, tagName, expectSHA string) bool {
	if run.HeadBranch != tagName && run.HeadBranch != "refs/tags/"+tagName {
		return false
	}
	if expectSHA != "" && run.HeadSHA != expectSHA {
		return false
	}
	return true
}

// Await observes the CI system's reaction to the pushed tag and reports a
// terminal outcome. Transient query errors consume a cadence slot rather
// than retrying; persistent failure degrades to MonitorNotFound.
func (m *RunMonitor) Await(ctx context.Context, tagName, expectSHA string) MonitorResult {
	run, found := m.discover(ctx, tagName, expectSHA)
	if !found {
		m.Log.Info("no run observed for tag", "tag", tagName)
		return MonitorResult{Outcome: MonitorNotFound}
	}

	m.Log.Info("run found", "tag", tagName, "run_id", run.ID, "url", run.URL)
	return m.poll(ctx, run)
}

func (m *RunMonitor) discover(ctx context.Context, tagName, expectSHA string) (WorkflowRun, bool) {
	spin := ux.NewSpinner(fmt.Sprintf("Waiting for CI run for %s...", tagName))
	spin.Start()
	defer spin.Stop()

	for attempt := 0; attempt < m.DiscoveryAttempts; attempt++ {
		if attempt > 0 {
			m.Sleep(m.DiscoveryInterval)
		}
		if ctx.Err() != nil {
			return WorkflowRun{}, false
		}

		runs, err := m.Runs.ListRecentRuns(ctx, 30)
		if err != nil {
			m.Log.Warn("run query failed", "error", err, "attempt", attempt+1)
			continue
		}
		for _, run := range runs {
			if matches(run, tagName, expectSHA) {
				return run, true
			}
		}
	}
	return WorkflowRun{}, false
}

func (m *RunMonitor) poll(ctx context.Context, run WorkflowRun) MonitorResult {
	deadline := m.Now().Add(m.Budget)
	lastStatus := ""

	spin := ux.NewSpinner(fmt.Sprintf("Run #%d %s...", run.ID, run.Status))
	spin.Start()
	defer spin.Stop()

	for {
		if run.Status == "completed" {
			if run.Conclusion == "success" {
				return MonitorResult{Outcome: MonitorSuccess, Run: &run}
			}
			return MonitorResult{Outcome: MonitorFailure, Run: &run}
		}

		if ctx.Err() != nil || !m.Now().Before(deadline) {
			return MonitorResult{Outcome: MonitorTimeout, Run: &run}
		}

		// Only surface status transitions to avoid redundant output.
		if run.Status != lastStatus {
			lastStatus = run.Status
			spin.UpdateMessage(fmt.Sprintf("Run #%d %s...", run.ID, run.Status))
			m.Log.Debug("run status", "run_id", run.ID, "status", run.Status)
		}

		m.Sleep(m.PollInterval)

		runs, err := m.Runs.ListRecentRuns(ctx, 30)
		if err != nil {
			m.Log.Warn("run status query failed", "error", err)
			continue
		}
		for _, r := range runs {
			if r.ID == run.ID {
				run = r
				break
			}
		}
	}
}
