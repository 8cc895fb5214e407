// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"strings"
	"testing"
	"time"
)

func TestConsentQuestion(t *testing.T) {
	question := ConsentQuestion("Alice", "https://example.org/rules", 30*time.Minute)
	for _, want := range []string{"Alice", "https://example.org/rules", "30 minutes"} {
		if !strings.Contains(question, want) {
			t.Errorf("question missing %q: %q", want, question)
		}
	}
}

func TestFormatWindow(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   string
	}{
		{30 * time.Minute, "30 minutes"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{90 * time.Second, "90 seconds"},
		{10 * time.Second, "10 seconds"},
	}
	for _, test := range tests {
		if got := formatWindow(test.window); got != test.want {
			t.Errorf("formatWindow(%v) = %q, want %q", test.window, got, test.want)
		}
	}
}

func TestAnnouncements(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"accepted", AcceptedAnnouncement("Alice")},
		{"rejected", RejectedAnnouncement("Alice")},
		{"timed out", TimedOutAnnouncement("Alice")},
		{"poll failed", PollFailedNotice("Alice")},
	}
	for _, test := range tests {
		if !strings.Contains(test.text, "Alice") {
			t.Errorf("%s announcement missing display name: %q", test.name, test.text)
		}
	}
}
