// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
)

func TestListRecentRuns(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total_count": 2,
			"workflow_runs": [
				{"id": 101, "name": "deploy", "status": "completed", "conclusion": "success",
				 "head_branch": "v1.2.0", "head_sha": "abc", "html_url": "https://github.com/x/y/runs/101"},
				{"id": 100, "name": "deploy", "status": "in_progress", "conclusion": null,
				 "head_branch": "refs/tags/v1.1.0", "head_sha": "def", "html_url": "https://github.com/x/y/runs/100"}
			]
		}`))
	}))
	defer server.Close()

	t.Setenv("TEST_GH_TOKEN", "ghp_secret")
	client := NewActionsClient(config.CIConfig{
		APIBaseURL: server.URL,
		Repo:       "karmadev/checkout-api",
		TokenEnv:   "TEST_GH_TOKEN",
	})

	runs, err := client.ListRecentRuns(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs", len(runs))
	}
	if gotPath != "/repos/karmadev/checkout-api/actions/runs?per_page=30" {
		t.Errorf("path %q", gotPath)
	}
	if gotAuth != "Bearer ghp_secret" {
		t.Errorf("auth %q", gotAuth)
	}
	if gotAccept != "application/vnd.github+json" {
		t.Errorf("accept %q", gotAccept)
	}

	first := runs[0]
	if first.ID != 101 || first.Status != "completed" || first.Conclusion != "success" {
		t.Errorf("first run %+v", first)
	}
	if first.HeadBranch != "v1.2.0" || first.URL != "https://github.com/x/y/runs/101" {
		t.Errorf("first run %+v", first)
	}
	if runs[1].Conclusion != "" {
		t.Errorf("null conclusion decoded as %q", runs[1].Conclusion)
	}
}

func TestListRecentRunsNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewActionsClient(config.CIConfig{APIBaseURL: server.URL, Repo: "karmadev/x"})
	if _, err := client.ListRecentRuns(context.Background(), 10); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestListRecentRunsNoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"total_count":0,"workflow_runs":[]}`))
	}))
	defer server.Close()

	client := NewActionsClient(config.CIConfig{APIBaseURL: server.URL, Repo: "karmadev/x"})
	runs, err := client.ListRecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("got %d runs", len(runs))
	}
}

func TestRunsPageURL(t *testing.T) {
	client := NewActionsClient(config.CIConfig{Repo: "karmadev/checkout-api"})
	if got := client.RunsPageURL(); got != "https://github.com/karmadev/checkout-api/actions" {
		t.Errorf("got %q", got)
	}
}
