// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/doorkeep-project/doorkeep/lib/clock"
	"github.com/doorkeep-project/doorkeep/lib/ref"
	"github.com/doorkeep-project/doorkeep/lib/socket"
	"github.com/doorkeep-project/doorkeep/vetting"
)

// statusResponse is the admin "status" action payload.
type statusResponse struct {
	UserID        ref.UserID `cbor:"user_id"`
	RoomID        ref.RoomID `cbor:"room_id"`
	PendingCount  int        `cbor:"pending_count"`
	WindowSeconds int64      `cbor:"window_seconds"`
	UptimeSeconds int64      `cbor:"uptime_seconds"`
}

// pendingChallenge is one entry of the admin "pending" action
// payload: a challenge snapshot plus its computed deadline.
type pendingChallenge struct {
	UserID      ref.UserID  `cbor:"user_id"`
	PollID      ref.EventID `cbor:"poll_id"`
	DisplayName string      `cbor:"display_name"`
	CreatedAt   time.Time   `cbor:"created_at"`
	Deadline    time.Time   `cbor:"deadline"`
}

// pendingResponse is the admin "pending" action payload.
type pendingResponse struct {
	Challenges []pendingChallenge `cbor:"challenges"`
}

// registerAdminActions wires the read-only introspection actions onto
// the admin socket.
func registerAdminActions(server *socket.Server, manager *vetting.Manager, selfID ref.UserID, roomID ref.RoomID, clk clock.Clock) {
	startedAt := clk.Now()

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return statusResponse{
			UserID:        selfID,
			RoomID:        roomID,
			PendingCount:  manager.PendingCount(),
			WindowSeconds: int64(manager.Window().Seconds()),
			UptimeSeconds: int64(clk.Now().Sub(startedAt).Seconds()),
		}, nil
	})

	server.Handle("pending", func(ctx context.Context, raw []byte) (any, error) {
		snapshot := manager.Pending()
		challenges := make([]pendingChallenge, 0, len(snapshot))
		for _, challenge := range snapshot {
			challenges = append(challenges, pendingChallenge{
				UserID:      challenge.UserID,
				PollID:      challenge.PollID,
				DisplayName: challenge.DisplayName,
				CreatedAt:   challenge.CreatedAt,
				Deadline:    challenge.CreatedAt.Add(manager.Window()),
			})
		}
		return pendingResponse{Challenges: challenges}, nil
	})
}
