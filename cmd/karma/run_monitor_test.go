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
	"testing"
	"time"

	"github.com/karmadev/karma-workflows/pkg/logging"
)

// testMonitor wires a monitor with a fake clock: Sleep advances the clock
// instead of blocking, so budget expiry is deterministic.
func testMonitor(runs RunService) (*RunMonitor, *[]time.Duration) {
	now := time.Unix(1724850000, 0)
	var slept []time.Duration

	m := NewRunMonitor(runs)
	m.Log = logging.Default()
	m.Now = func() time.Time { return now }
	m.Sleep = func(d time.Duration) {
		slept = append(slept, d)
		now = now.Add(d)
	}
	return m, &slept
}

func TestAwaitSuccess(t *testing.T) {
	svc := &fakeRunService{pages: [][]WorkflowRun{
		{}, // run not visible yet on the first discovery attempt
		{{ID: 42, Status: "queued", HeadBranch: "v1.2.0-dev"}},
		{{ID: 42, Status: "in_progress", HeadBranch: "v1.2.0-dev"}},
		{{ID: 42, Status: "completed", Conclusion: "success", HeadBranch: "v1.2.0-dev"}},
	}}
	m, slept := testMonitor(svc)

	result := m.Await(context.Background(), "v1.2.0-dev", "")
	if result.Outcome != MonitorSuccess {
		t.Fatalf("outcome %s, want success", result.Outcome)
	}
	if result.Run == nil || result.Run.ID != 42 {
		t.Fatalf("run %+v", result.Run)
	}

	// One discovery wait, then status polls.
	if len(*slept) == 0 || (*slept)[0] != m.DiscoveryInterval {
		t.Errorf("slept %v", *slept)
	}
}

func TestAwaitFailure(t *testing.T) {
	svc := &fakeRunService{pages: [][]WorkflowRun{
		{{ID: 7, Status: "in_progress", HeadBranch: "refs/tags/v2.0.0"}},
		{{ID: 7, Status: "completed", Conclusion: "failure", HeadBranch: "refs/tags/v2.0.0"}},
	}}
	m, _ := testMonitor(svc)

	result := m.Await(context.Background(), "v2.0.0", "")
	if result.Outcome != MonitorFailure {
		t.Fatalf("outcome %s, want failure", result.Outcome)
	}
}

func TestAwaitNotFoundAfterBoundedDiscovery(t *testing.T) {
	svc := &fakeRunService{pages: [][]WorkflowRun{
		{{ID: 9, Status: "queued", HeadBranch: "v9.9.9-dev"}}, // other tag only
	}}
	m, slept := testMonitor(svc)

	result := m.Await(context.Background(), "v1.0.0-dev", "")
	if result.Outcome != MonitorNotFound {
		t.Fatalf("outcome %s, want not_found", result.Outcome)
	}
	if svc.calls != m.DiscoveryAttempts {
		t.Errorf("made %d queries, want %d", svc.calls, m.DiscoveryAttempts)
	}
	if len(*slept) != m.DiscoveryAttempts-1 {
		t.Errorf("slept %d times, want %d", len(*slept), m.DiscoveryAttempts-1)
	}
}

func TestAwaitTimeoutWhenRunNeverCompletes(t *testing.T) {
	svc := &fakeRunService{pages: [][]WorkflowRun{
		{{ID: 5, Status: "in_progress", HeadBranch: "v1.0.0"}},
	}}
	m, _ := testMonitor(svc)

	result := m.Await(context.Background(), "v1.0.0", "")
	if result.Outcome != MonitorTimeout {
		t.Fatalf("outcome %s, want timeout", result.Outcome)
	}
	if result.Run == nil || result.Run.ID != 5 {
		t.Fatalf("timeout should still report the observed run, got %+v", result.Run)
	}
}

func TestAwaitToleratesTransientQueryErrors(t *testing.T) {
	svc := &fakeRunService{
		errs: []error{errors.New("503"), nil},
		pages: [][]WorkflowRun{
			nil,
			{{ID: 3, Status: "completed", Conclusion: "success", HeadBranch: "v1.0.0"}},
		},
	}
	m, _ := testMonitor(svc)

	result := m.Await(context.Background(), "v1.0.0", "")
	if result.Outcome != MonitorSuccess {
		t.Fatalf("outcome %s, want success", result.Outcome)
	}
}

func TestMatchRequiresSHAAfterRebuild(t *testing.T) {
	stale := WorkflowRun{ID: 1, HeadBranch: "v2.0.0", HeadSHA: "oldsha"}
	fresh := WorkflowRun{ID: 2, HeadBranch: "v2.0.0", HeadSHA: "newsha"}

	if matches(stale, "v2.0.0", "newsha") {
		t.Error("stale run matched after rebuild")
	}
	if !matches(fresh, "v2.0.0", "newsha") {
		t.Error("fresh run did not match")
	}
	if !matches(stale, "v2.0.0", "") {
		t.Error("plain deploy should match by tag ref alone")
	}
	if matches(fresh, "v9.0.0", "") {
		t.Error("wrong tag matched")
	}
}
