// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the slice of the Matrix client-server API
// that Doorkeep needs: authentication, room resolution, event and
// message sending (including MSC3381 polls and m.thread replies),
// membership management (ban), and incremental /sync with
// long-polling.
//
// [Client] is an unauthenticated client holding the homeserver URL
// and HTTP transport. [Session] wraps a Client with an access token
// for authenticated operations; the token lives in mmap-backed
// secret.Buffer memory (locked against swap, excluded from core
// dumps), and callers must Close the session to release it.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, ...) and HTTP status.
// Request URLs are built by string concatenation rather than url.URL
// to avoid double-encoding of path segments containing URL-encoded
// characters (such as room aliases).
//
// Polls are first-class: [NewPollStart] builds an MSC3381 poll
// start event, [ParsePollResponse] extracts the referenced poll and
// selected answers from a poll response event, and [NewThreadReply]
// builds announcements threaded to the poll message.
package messaging
