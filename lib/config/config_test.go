// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doorkeep.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

const validConfig = `
homeserver_url: https://matrix.example.org
room: "#club:example.org"
rules_url: https://example.org/rules
state_dir: /var/lib/doorkeep
admin_socket: /run/doorkeep/admin.sock
challenge_window: 30m
`

func TestLoadValid(t *testing.T) {
	loaded, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.HomeserverURL != "https://matrix.example.org" {
		t.Errorf("HomeserverURL: got %q", loaded.HomeserverURL)
	}
	if loaded.Room != "#club:example.org" {
		t.Errorf("Room: got %q", loaded.Room)
	}
	if time.Duration(loaded.ChallengeWindow) != 30*time.Minute {
		t.Errorf("ChallengeWindow: got %v, want 30m", time.Duration(loaded.ChallengeWindow))
	}
}

func TestLoadMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing homeserver", "room: \"!a:b\"\nrules_url: x\nstate_dir: /tmp\n"},
		{"missing room", "homeserver_url: http://h\nrules_url: x\nstate_dir: /tmp\n"},
		{"missing rules", "homeserver_url: http://h\nroom: \"!a:b\"\nstate_dir: /tmp\n"},
		{"missing state dir", "homeserver_url: http://h\nroom: \"!a:b\"\nrules_url: x\n"},
		{"bad room sigil", "homeserver_url: http://h\nroom: \"club\"\nrules_url: x\nstate_dir: /tmp\n"},
		{"bad duration", validConfig + "challenge_window: soon\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, test.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadOmittedWindowDefaultsToZero(t *testing.T) {
	content := `
homeserver_url: https://matrix.example.org
room: "!abc:example.org"
rules_url: https://example.org/rules
state_dir: /var/lib/doorkeep
`
	loaded, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ChallengeWindow != 0 {
		t.Errorf("ChallengeWindow: got %v, want 0 (caller applies default)", loaded.ChallengeWindow)
	}
	if loaded.AdminSocket != "" {
		t.Errorf("AdminSocket: got %q, want empty", loaded.AdminSocket)
	}
}

func TestLocate(t *testing.T) {
	if path, err := Locate("/explicit/path"); err != nil || path != "/explicit/path" {
		t.Errorf("Locate with flag: got %q, %v", path, err)
	}

	t.Setenv(EnvVar, "/env/path")
	if path, err := Locate(""); err != nil || path != "/env/path" {
		t.Errorf("Locate from env: got %q, %v", path, err)
	}

	t.Setenv(EnvVar, "")
	if _, err := Locate(""); err == nil {
		t.Error("Locate with nothing set: expected error")
	}
}
