// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package vetting implements the join-challenge state machine at the
// heart of Doorkeep: when a user joins the watched room, a timed
// consent poll is posted, and the user is banned unless they confirm
// the community rules before the window closes.
//
// [Manager] owns the table of in-flight challenges. Per user the
// lifecycle is Joined → Pending → one of {Accepted, Rejected,
// TimedOut}; every terminal state ends with the table entry removed.
// A single mutex guards the table, so the race between an inbound
// answer and the expiry timer for the same user is settled by a
// linearizable check-and-remove: exactly one side observes the entry
// and performs the terminal action, the other finds nothing and
// no-ops.
//
// [Adapter] feeds the Manager from Matrix /sync batches: it filters
// m.room.member events down to genuine new joins and maps MSC3381
// poll responses to answers. [Gateway] is the outbound capability the
// Manager consumes (send poll, announce, ban); [MatrixGateway] is the
// production implementation, tests substitute a fake.
package vetting
