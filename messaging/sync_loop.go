// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doorkeep-project/doorkeep/lib/clock"
)

// SyncConfig configures the Matrix /sync long-poll loop.
type SyncConfig struct {
	// Filter is the inline JSON filter restricting which event types
	// the homeserver returns. Doorkeep filters to membership, poll,
	// and message events in its watched room.
	Filter string

	// Timeout is the long-poll timeout in milliseconds. The homeserver
	// holds the connection open for this duration when no events are
	// available, then returns an empty response. Default: 30000 (30s).
	Timeout int

	// MaxBackoff is the maximum duration between retry attempts on
	// transient /sync errors. The loop uses exponential backoff
	// starting at 1 second. Default: 30 seconds.
	MaxBackoff time.Duration
}

// SyncHandler is called for each /sync response. The next /sync poll
// starts after the handler returns, so handlers should not block for
// extended periods.
type SyncHandler func(ctx context.Context, response *SyncResponse)

// InitialSync performs the first Matrix /sync with no since token to
// obtain a state snapshot. Returns the next_batch token for the
// incremental loop and the full response.
//
// Unlike incremental sync, this returns immediately — the homeserver
// sends the current state without waiting for new events. Doorkeep
// discards the snapshot's timeline: members already in the room at
// startup are not challenged.
func InitialSync(ctx context.Context, session *Session, filter string) (string, *SyncResponse, error) {
	response, err := session.Sync(ctx, SyncOptions{
		Filter: filter,
	})
	if err != nil {
		return "", nil, fmt.Errorf("initial sync: %w", err)
	}
	return response.NextBatch, response, nil
}

// RunSyncLoop runs the incremental Matrix /sync long-poll loop. It
// polls the homeserver with the given since token and calls handler
// for each response. The loop continues until ctx is cancelled.
//
// On transient errors, the loop retries with exponential backoff
// (1 second to config.MaxBackoff). On context cancellation the loop
// returns cleanly.
//
// The caller performs the initial sync (via InitialSync) before
// starting this loop, so startup state is established before the
// event-driven incremental phase begins.
func RunSyncLoop(ctx context.Context, session *Session, config SyncConfig, sinceToken string, handler SyncHandler, clk clock.Clock, logger *slog.Logger) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30000
	}
	maxBackoff := config.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		options := SyncOptions{
			Since:      sinceToken,
			Timeout:    timeout,
			SetTimeout: true,
			Filter:     config.Filter,
		}

		response, err := session.Sync(ctx, options)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("sync failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-clk.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = time.Second
		sinceToken = response.NextBatch

		handler(ctx, response)
	}
}
