// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/karmadev/karma-workflows/cmd/karma/config"
)

// ActionsClient queries the GitHub Actions REST API for workflow runs.
// The engine only depends on two things from CI: "runs identified by tag
// reference" and a run's status/conclusion.
type ActionsClient struct {
	baseURL    string
	repo       string // owner/name
	token      string
	httpClient *http.Client
}

// NewActionsClient builds a client from CI configuration. The API token is
// read from the environment variable named by cfg.TokenEnv; an empty token
// still works for public repositories.
func NewActionsClient(cfg config.CIConfig) *ActionsClient {
	base := cfg.APIBaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	token := ""
	if cfg.TokenEnv != "" {
		token = os.Getenv(cfg.TokenEnv)
	}
	return &ActionsClient{
		baseURL:    strings.TrimRight(base, "/"),
		repo:       cfg.Repo,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type workflowRunsResponse struct {
	TotalCount   int               `json:"total_count"`
	WorkflowRuns []workflowRunJSON `json:"workflow_runs"`
}

type workflowRunJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HeadBranch string `json:"head_branch"`
	HeadSHA    string `json:"head_sha"`
	HTMLURL    string `json:"html_url"`
}

// ListRecentRuns returns the most recent workflow runs, newest first.
func (c *ActionsClient) ListRecentRuns(ctx context.Context, limit int) ([]WorkflowRun, error) {
	if limit <= 0 {
		limit = 30
	}
	endpoint := fmt.Sprintf("%s/repos/%s/actions/runs?per_page=%d", c.baseURL, c.repo, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("workflow runs query returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded workflowRunsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode workflow runs: %w", err)
	}

	runs := make([]WorkflowRun, 0, len(decoded.WorkflowRuns))
	for _, r := range decoded.WorkflowRuns {
		runs = append(runs, WorkflowRun{
			ID:         r.ID,
			Name:       r.Name,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			HeadBranch: r.HeadBranch,
			HeadSHA:    r.HeadSHA,
			URL:        r.HTMLURL,
		})
	}
	return runs, nil
}

// RunsPageURL is the human-facing actions page, used as the manual
// monitoring pointer when a run cannot be observed.
func (c *ActionsClient) RunsPageURL() string {
	host := "https://github.com"
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" && u.Host != "api.github.com" {
		// GitHub Enterprise: API lives under the same host.
		host = u.Scheme + "://" + strings.TrimPrefix(u.Host, "api.")
	}
	return fmt.Sprintf("%s/%s/actions", host, c.repo)
}

var _ RunService = (*ActionsClient)(nil)
