// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "testing"

func TestParseTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ParsedTag
	}{
		{
			name:  "production",
			input: "v2.1.0",
			want:  ParsedTag{Environment: EnvProduction, Version: Version{2, 1, 0}},
		},
		{
			name:  "staging",
			input: "v2.1.0-staging",
			want:  ParsedTag{Environment: EnvStaging, Version: Version{2, 1, 0}},
		},
		{
			name:  "development",
			input: "v0.0.1-dev",
			want:  ParsedTag{Environment: EnvDevelopment, Version: Version{0, 0, 1}},
		},
		{
			name:  "production rollback",
			input: "v2.1.0-rollback-1724850000",
			want: ParsedTag{
				Environment: EnvProduction, Version: Version{2, 1, 0},
				Rollback: true, RollbackStamp: 1724850000,
			},
		},
		{
			name:  "staging rollback",
			input: "v2.1.0-staging-rollback-1724850000",
			want: ParsedTag{
				Environment: EnvStaging, Version: Version{2, 1, 0},
				Rollback: true, RollbackStamp: 1724850000,
			},
		},
		{
			name:  "large segments",
			input: "v10.20.30-dev",
			want:  ParsedTag{Environment: EnvDevelopment, Version: Version{10, 20, 30}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTag(tt.input)
			if err != nil {
				t.Fatalf("ParseTag(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTag(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTagRejects(t *testing.T) {
	inputs := []string{
		"",
		"2.1.0",             // missing prefix
		"v2.1",              // two segments
		"v2.1.0.4",          // four segments
		"v02.1.0",           // leading zero breaks the bijection
		"v2.01.0",           // leading zero
		"v2.1.00",           // leading zero
		"v2.1.0-prod",       // unknown qualifier
		"v2.1.0-Staging",    // case matters
		"v2.1.0-rollback",   // rollback without stamp
		"v2.1.0-rollback-",  // empty stamp
		"v2.1.0-rollback-01724850000", // leading zero in stamp
		"v2.1.0 ",           // trailing space
		"release-2.1.0",
	}
	for _, input := range inputs {
		if _, err := ParseTag(input); err == nil {
			t.Errorf("ParseTag(%q) succeeded, want error", input)
		}
	}
}

// Every valid tag string decodes and re-renders to itself, and every
// decodable triple renders back to the string it came from.
func TestTagRoundTrip(t *testing.T) {
	inputs := []string{
		"v0.0.1-dev",
		"v1.0.0",
		"v1.2.3-staging",
		"v10.0.0",
		"v2.5.0-rollback-1724850000",
		"v2.5.0-dev-rollback-9",
		"v0.0.0",
	}
	for _, input := range inputs {
		parsed, err := ParseTag(input)
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", input, err)
		}
		if got := parsed.TagName(); got != input {
			t.Errorf("round trip %q -> %+v -> %q", input, parsed, got)
		}
	}
}

func TestRenderTag(t *testing.T) {
	v := Version{2, 1, 0}
	if got := RenderTag(EnvProduction, v); got != "v2.1.0" {
		t.Errorf("production: got %q", got)
	}
	if got := RenderTag(EnvStaging, v); got != "v2.1.0-staging" {
		t.Errorf("staging: got %q", got)
	}
	if got := RenderTag(EnvDevelopment, v); got != "v2.1.0-dev" {
		t.Errorf("development: got %q", got)
	}
}

func TestRollbackTagName(t *testing.T) {
	got := RollbackTagName("v2.5.0-staging", 1724850000)
	if got != "v2.5.0-staging-rollback-1724850000" {
		t.Errorf("got %q", got)
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{Version{1, 0, 0}, Version{1, 0, 0}, 0},
		{Version{2, 0, 0}, Version{1, 9, 9}, 1},
		{Version{1, 2, 0}, Version{1, 10, 0}, -1},
		{Version{1, 2, 3}, Version{1, 2, 4}, -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
