// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"context"
	"log/slog"

	"github.com/doorkeep-project/doorkeep/lib/ref"
	"github.com/doorkeep-project/doorkeep/messaging"
)

// Adapter translates Matrix /sync batches into Manager calls. It
// carries no business logic: membership events are filtered down to
// genuine new joins, poll responses are mapped to answers, everything
// else is ignored.
type Adapter struct {
	manager *Manager
	selfID  ref.UserID
	roomID  ref.RoomID
	logger  *slog.Logger
}

// NewAdapter creates an Adapter feeding the given Manager. selfID is
// the bot's own user ID, used to ignore its own membership changes;
// roomID is the single watched room.
func NewAdapter(manager *Manager, selfID ref.UserID, roomID ref.RoomID, logger *slog.Logger) *Adapter {
	return &Adapter{
		manager: manager,
		selfID:  selfID,
		roomID:  roomID,
		logger:  logger,
	}
}

// SyncFilter is the inline /sync filter limiting server responses to
// the event types the Adapter handles. Lazy-loaded members and
// elided presence keep long-poll responses small.
const SyncFilter = `{"room":{"timeline":{"types":["m.room.member","org.matrix.msc3381.poll.response"],"lazy_load_members":true},"ephemeral":{"types":[]}},"presence":{"types":[]}}`

// HandleSync processes one /sync response: every timeline event of
// the watched room is dispatched, each behind a recover so one
// malformed event cannot abort the loop or other users' challenges.
func (a *Adapter) HandleSync(ctx context.Context, response *messaging.SyncResponse) {
	room, ok := response.Rooms.Join[a.roomID]
	if !ok {
		return
	}
	for _, event := range room.Timeline.Events {
		a.dispatchEvent(ctx, event)
	}
}

// dispatchEvent routes one event to the Manager, absorbing panics at
// the handler boundary.
func (a *Adapter) dispatchEvent(ctx context.Context, event messaging.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			a.logger.Error("panic handling event",
				"event_id", event.EventID,
				"event_type", event.Type,
				"panic", recovered,
			)
		}
	}()

	switch event.Type {
	case messaging.EventTypeMember:
		a.handleMemberEvent(ctx, event)
	case messaging.EventTypePollResponse:
		a.handlePollResponse(ctx, event)
	}
}

// handleMemberEvent starts a challenge for genuine new joins. Profile
// updates of existing members arrive as membership "join" with a
// previous membership of "join"; those, and the bot's own membership
// changes, are dropped.
func (a *Adapter) handleMemberEvent(ctx context.Context, event messaging.Event) {
	if event.Membership() != messaging.MembershipJoin {
		return
	}
	if event.PrevMembership() == messaging.MembershipJoin {
		return
	}
	if event.StateKey == nil {
		return
	}
	userID, err := ref.ParseUserID(*event.StateKey)
	if err != nil {
		a.logger.Warn("member event with malformed state key",
			"event_id", event.EventID,
			"state_key", *event.StateKey,
		)
		return
	}
	if userID == a.selfID {
		return
	}

	displayName := event.MemberDisplayName()
	if displayName == "" {
		displayName = userID.Localpart()
	}

	outcome := a.manager.StartChallenge(ctx, userID, displayName)
	a.logger.Debug("join handled",
		"user_id", userID,
		"outcome", outcome,
	)
}

// handlePollResponse resolves a challenge with a poll answer. The
// answering user is the event sender; only the first selected answer
// is meaningful since the consent poll is single-choice.
func (a *Adapter) handlePollResponse(ctx context.Context, event messaging.Event) {
	if event.Sender == a.selfID {
		return
	}
	response, ok := messaging.ParsePollResponse(event)
	if !ok {
		return
	}
	pollID, err := ref.ParseEventID(response.PollID)
	if err != nil {
		a.logger.Warn("poll response with malformed poll reference",
			"event_id", event.EventID,
			"poll_id", response.PollID,
		)
		return
	}
	optionIndex, ok := messaging.AnswerIndex(response.Answers[0])
	if !ok {
		a.logger.Warn("poll response with unrecognized answer ID",
			"event_id", event.EventID,
			"answer_id", response.Answers[0],
		)
		return
	}

	outcome := a.manager.ResolveAnswer(ctx, event.Sender, pollID, optionIndex)
	a.logger.Debug("poll answer handled",
		"user_id", event.Sender,
		"poll_id", pollID,
		"outcome", outcome,
	)
}
