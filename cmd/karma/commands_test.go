// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "testing"

func TestRootCommandWiring(t *testing.T) {
	if rootCmd.Version != buildVersion {
		t.Errorf("root version %q, want %q", rootCmd.Version, buildVersion)
	}

	// The build stamp is a string; the semantic version triple is a
	// separate type and the two names must not shadow each other.
	var _ string = buildVersion
	var _ Version = Version{Major: 1}

	want := map[string]bool{"deploy": false, "rollback": false, "history": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestDeployFlagRegistration(t *testing.T) {
	for _, name := range []string{"major", "minor", "patch", "version", "rebuild", "message", "preview", "no-monitor"} {
		if deployCmd.Flags().Lookup(name) == nil {
			t.Errorf("deploy flag --%s not registered", name)
		}
	}
	for _, name := range []string{"to", "no-monitor", "limit"} {
		if rollbackCmd.Flags().Lookup(name) == nil {
			t.Errorf("rollback flag --%s not registered", name)
		}
	}
	if rootCmd.PersistentFlags().Lookup("personality") == nil {
		t.Error("persistent flag --personality not registered")
	}
}
