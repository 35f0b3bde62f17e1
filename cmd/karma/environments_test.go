// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "testing"

func TestParseEnvironmentToken(t *testing.T) {
	tests := []struct {
		token      string
		wantEnv    Environment
		wantHotfix bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"hotfix", EnvProduction, true},
		{"PROD", EnvProduction, false},
		{" staging ", EnvStaging, false},
	}
	for _, tt := range tests {
		env, hotfix, err := ParseEnvironmentToken(tt.token)
		if err != nil {
			t.Errorf("ParseEnvironmentToken(%q): %v", tt.token, err)
			continue
		}
		if env != tt.wantEnv || hotfix != tt.wantHotfix {
			t.Errorf("ParseEnvironmentToken(%q) = (%v, %v), want (%v, %v)",
				tt.token, env, hotfix, tt.wantEnv, tt.wantHotfix)
		}
	}

	if _, _, err := ParseEnvironmentToken("qa"); err == nil {
		t.Error("unknown token accepted")
	}
}

func TestEnvironmentQualifier(t *testing.T) {
	if q := EnvProduction.Qualifier(); q != "" {
		t.Errorf("production qualifier %q", q)
	}
	if q := EnvStaging.Qualifier(); q != "-staging" {
		t.Errorf("staging qualifier %q", q)
	}
	if q := EnvDevelopment.Qualifier(); q != "-dev" {
		t.Errorf("development qualifier %q", q)
	}
}
