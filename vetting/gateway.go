// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"context"
	"fmt"

	"github.com/doorkeep-project/doorkeep/lib/ref"
	"github.com/doorkeep-project/doorkeep/messaging"
)

// PollHandle identifies an outbound poll: the poll ID used to
// correlate inbound answers, and the prompt message ID used to thread
// follow-up announcements. On Matrix both are the poll start event,
// but the Manager treats them as distinct so the correlation check
// and the thread root stay independent concerns.
type PollHandle struct {
	PollID   ref.EventID
	PromptID ref.EventID
}

// Gateway is the outbound capability the Manager consumes. All calls
// are effectively stateless from the Manager's perspective; failures
// are returned, never retried here.
type Gateway interface {
	// SendPoll posts a non-anonymous single-answer poll and returns
	// its handle.
	SendPoll(ctx context.Context, roomID ref.RoomID, question string, options []string) (PollHandle, error)

	// SendMessage posts a plain room message.
	SendMessage(ctx context.Context, roomID ref.RoomID, text string) error

	// SendThreadReply posts a message threaded to the given root
	// event.
	SendThreadReply(ctx context.Context, roomID ref.RoomID, threadRoot ref.EventID, text string) error

	// BanUser removes the user from the room and prevents rejoining.
	BanUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error
}

// MatrixGateway implements Gateway on an authenticated Matrix
// session.
type MatrixGateway struct {
	session *messaging.Session
}

// NewMatrixGateway wraps a session. The caller retains ownership of
// the session and is responsible for closing it.
func NewMatrixGateway(session *messaging.Session) *MatrixGateway {
	return &MatrixGateway{session: session}
}

func (g *MatrixGateway) SendPoll(ctx context.Context, roomID ref.RoomID, question string, options []string) (PollHandle, error) {
	content := messaging.NewPollStart(question, options)
	eventID, err := g.session.SendEvent(ctx, roomID, messaging.EventTypePollStart, content)
	if err != nil {
		return PollHandle{}, fmt.Errorf("vetting: send poll: %w", err)
	}
	// The poll start event is both the answer-correlation key and the
	// thread root for verdict announcements.
	return PollHandle{PollID: eventID, PromptID: eventID}, nil
}

func (g *MatrixGateway) SendMessage(ctx context.Context, roomID ref.RoomID, text string) error {
	if _, err := g.session.SendMessage(ctx, roomID, messaging.NewTextMessage(text)); err != nil {
		return fmt.Errorf("vetting: send message: %w", err)
	}
	return nil
}

func (g *MatrixGateway) SendThreadReply(ctx context.Context, roomID ref.RoomID, threadRoot ref.EventID, text string) error {
	if _, err := g.session.SendMessage(ctx, roomID, messaging.NewThreadReply(threadRoot, text)); err != nil {
		return fmt.Errorf("vetting: send thread reply: %w", err)
	}
	return nil
}

func (g *MatrixGateway) BanUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error {
	if err := g.session.BanUser(ctx, roomID, userID, reason); err != nil {
		return fmt.Errorf("vetting: ban user: %w", err)
	}
	return nil
}
