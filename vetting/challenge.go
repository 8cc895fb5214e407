// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"time"

	"github.com/doorkeep-project/doorkeep/lib/ref"
)

// Challenge is the tracked state of one user's pending consent vote,
// from poll sent to resolution. Immutable once armed; the table entry
// is the only mutable unit and its removal is the only mutation.
type Challenge struct {
	// UserID keys the challenge table: at most one pending challenge
	// per user.
	UserID ref.UserID `json:"user_id" cbor:"user_id"`

	// PollID is the poll start event. Inbound answers are routed by
	// the answering user's ID; PollID serves as a secondary check
	// against stale or misdelivered answers. Zero while the poll send
	// is still in flight.
	PollID ref.EventID `json:"poll_id" cbor:"poll_id"`

	// RoomID is where the poll and follow-up announcements were sent.
	RoomID ref.RoomID `json:"room_id" cbor:"room_id"`

	// PromptID is the thread root for verdict announcements.
	PromptID ref.EventID `json:"prompt_id" cbor:"prompt_id"`

	// DisplayName is cached at join time for user-facing text.
	DisplayName string `json:"display_name" cbor:"display_name"`

	// CreatedAt is measured at successful poll send; the expiry
	// deadline is CreatedAt plus the challenge window.
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
}

// Outcome reports what a Manager operation did. Outcomes are logged
// and exposed over the admin socket; callers branch on them only in
// tests.
type Outcome string

const (
	// OutcomeChallenged: a poll was sent and an expiry timer armed.
	OutcomeChallenged Outcome = "challenged"
	// OutcomeAlreadyChallenged: a pending challenge already exists
	// for the user; duplicate join notification absorbed.
	OutcomeAlreadyChallenged Outcome = "already-challenged"
	// OutcomePollFailed: the poll send failed; a fallback notice was
	// posted and no challenge is tracked.
	OutcomePollFailed Outcome = "poll-failed"
	// OutcomeAccepted: the user confirmed the rules.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected: the user declined the rules and was banned.
	OutcomeRejected Outcome = "rejected"
	// OutcomeTimedOut: the window elapsed with no answer; the user
	// was banned.
	OutcomeTimedOut Outcome = "timed-out"
	// OutcomeNoChallenge: no pending challenge for the user; the
	// other racer already resolved it, or none was ever started.
	OutcomeNoChallenge Outcome = "no-challenge"
	// OutcomePollMismatch: a pending challenge exists but the answer
	// references a different poll; stale delivery absorbed.
	OutcomePollMismatch Outcome = "poll-mismatch"
)
