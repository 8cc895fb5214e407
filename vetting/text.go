// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"fmt"
	"time"
)

// Poll options, in answer-index order. Index 0 confirms the rules;
// index 1 declines them.
const (
	OptionConfirm = "Confirm"
	OptionDecline = "Do not confirm"
)

// ConsentOptions returns the poll options in answer-index order.
func ConsentOptions() []string {
	return []string{OptionConfirm, OptionDecline}
}

// ConsentQuestion renders the poll question for a joining user. The
// window is mentioned in the question so members know the deadline.
func ConsentQuestion(displayName, rulesURL string, window time.Duration) string {
	return fmt.Sprintf(
		"Hi, %s! Before the timer runs out (%s), please read the community rules at the link below and either accept them or not.\n\n%s",
		displayName, formatWindow(window), rulesURL,
	)
}

// formatWindow renders a challenge window for user-facing text:
// "30 minutes", "1 minute", "90 seconds" for sub-minute windows.
func formatWindow(window time.Duration) string {
	if window < time.Minute || window%time.Minute != 0 {
		return fmt.Sprintf("%d seconds", int(window.Seconds()))
	}
	minutes := int(window.Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// PollFailedNotice renders the fallback notice posted when the
// consent poll could not be sent.
func PollFailedNotice(displayName string) string {
	return fmt.Sprintf(
		"❌ Could not post the consent poll for %s. Please open a direct chat with the bot and rejoin.",
		displayName,
	)
}

// AcceptedAnnouncement renders the verdict for a user who confirmed
// the rules.
func AcceptedAnnouncement(displayName string) string {
	return fmt.Sprintf("✅ %s accepted the rules and joined the community!", displayName)
}

// RejectedAnnouncement renders the verdict for a user who declined
// the rules.
func RejectedAnnouncement(displayName string) string {
	return fmt.Sprintf("❌ %s did not accept the rules and has been removed.", displayName)
}

// TimedOutAnnouncement renders the verdict for a user who never
// answered.
func TimedOutAnnouncement(displayName string) string {
	return fmt.Sprintf("❌ %s did not respond in time and has been removed.", displayName)
}
