// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/doorkeep-project/doorkeep/lib/clock"
	"github.com/doorkeep-project/doorkeep/lib/ref"
	"github.com/doorkeep-project/doorkeep/messaging"
)

var testBotID = ref.MustParseUserID("@doorkeep:test.local")

func newTestAdapter(t *testing.T) (*Adapter, *Manager, *fakeGateway, *clock.FakeClock) {
	t.Helper()
	manager, gateway, clk := newTestManager(t)
	adapter := NewAdapter(manager, testBotID, testRoomID, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return adapter, manager, gateway, clk
}

// syncWithEvents wraps timeline events in a sync response for the
// watched room.
func syncWithEvents(events ...messaging.Event) *messaging.SyncResponse {
	return &messaging.SyncResponse{
		NextBatch: "batch",
		Rooms: messaging.RoomsSection{
			Join: map[ref.RoomID]messaging.JoinedRoom{
				testRoomID: {
					Timeline: messaging.TimelineSection{Events: events},
				},
			},
		},
	}
}

// joinEvent builds an m.room.member join for the given user.
func joinEvent(userID ref.UserID, displayName string) messaging.Event {
	stateKey := userID.String()
	return messaging.Event{
		EventID:  ref.MustParseEventID("$join-" + userID.Localpart()),
		Type:     messaging.EventTypeMember,
		Sender:   userID,
		StateKey: &stateKey,
		Content: map[string]any{
			"membership":  "join",
			"displayname": displayName,
		},
	}
}

func TestAdapterStartsChallengeOnJoin(t *testing.T) {
	adapter, manager, gateway, _ := newTestAdapter(t)

	adapter.HandleSync(context.Background(), syncWithEvents(joinEvent(testUserID, "Alice")))

	if gateway.pollCount() != 1 {
		t.Fatalf("got %d polls, want 1", gateway.pollCount())
	}
	if manager.PendingCount() != 1 {
		t.Errorf("pending count = %d, want 1", manager.PendingCount())
	}
}

func TestAdapterIgnoresNonJoinEvents(t *testing.T) {
	adapter, _, gateway, _ := newTestAdapter(t)

	stateKey := testUserID.String()
	events := []messaging.Event{
		// Leave event.
		{
			EventID:  ref.MustParseEventID("$leave"),
			Type:     messaging.EventTypeMember,
			Sender:   testUserID,
			StateKey: &stateKey,
			Content:  map[string]any{"membership": "leave"},
		},
		// Profile update: join with previous membership join.
		{
			EventID:  ref.MustParseEventID("$profile"),
			Type:     messaging.EventTypeMember,
			Sender:   testUserID,
			StateKey: &stateKey,
			Content:  map[string]any{"membership": "join", "displayname": "Alice II"},
			Unsigned: &messaging.EventUnsigned{
				PrevContent: map[string]any{"membership": "join"},
			},
		},
		// Ordinary message.
		{
			EventID: ref.MustParseEventID("$msg"),
			Type:    messaging.EventTypeMessage,
			Sender:  testUserID,
			Content: map[string]any{"msgtype": "m.text", "body": "hello"},
		},
	}

	adapter.HandleSync(context.Background(), syncWithEvents(events...))
	if gateway.pollCount() != 0 {
		t.Errorf("got %d polls for non-join events, want 0", gateway.pollCount())
	}
}

func TestAdapterIgnoresOwnJoin(t *testing.T) {
	adapter, _, gateway, _ := newTestAdapter(t)

	adapter.HandleSync(context.Background(), syncWithEvents(joinEvent(testBotID, "Doorkeep")))
	if gateway.pollCount() != 0 {
		t.Errorf("got %d polls for the bot's own join, want 0", gateway.pollCount())
	}
}

func TestAdapterIgnoresOtherRooms(t *testing.T) {
	adapter, _, gateway, _ := newTestAdapter(t)

	response := &messaging.SyncResponse{
		NextBatch: "batch",
		Rooms: messaging.RoomsSection{
			Join: map[ref.RoomID]messaging.JoinedRoom{
				ref.MustParseRoomID("!other:test.local"): {
					Timeline: messaging.TimelineSection{
						Events: []messaging.Event{joinEvent(testUserID, "Alice")},
					},
				},
			},
		},
	}
	adapter.HandleSync(context.Background(), response)
	if gateway.pollCount() != 0 {
		t.Errorf("got %d polls for a join in an unwatched room, want 0", gateway.pollCount())
	}
}

func TestAdapterFallsBackToLocalpart(t *testing.T) {
	adapter, _, gateway, _ := newTestAdapter(t)

	event := joinEvent(testUserID, "")
	delete(event.Content, "displayname")
	adapter.HandleSync(context.Background(), syncWithEvents(event))

	if gateway.pollCount() != 1 {
		t.Fatalf("got %d polls, want 1", gateway.pollCount())
	}
	if got := gateway.polls[0].question; !strings.Contains(got, "alice") {
		t.Errorf("question does not use localpart fallback: %q", got)
	}
}

func TestAdapterResolvesAnswer(t *testing.T) {
	adapter, manager, gateway, _ := newTestAdapter(t)

	adapter.HandleSync(context.Background(), syncWithEvents(joinEvent(testUserID, "Alice")))
	handle := gateway.polls[0].handle

	answer := messaging.Event{
		EventID: ref.MustParseEventID("$answer"),
		Type:    messaging.EventTypePollResponse,
		Sender:  testUserID,
		Content: messaging.NewPollResponse(handle.PollID.String(), []string{"option-0"}),
	}
	adapter.HandleSync(context.Background(), syncWithEvents(answer))

	if manager.PendingCount() != 0 {
		t.Errorf("pending count = %d after answer, want 0", manager.PendingCount())
	}
	if gateway.banCount() != 0 {
		t.Errorf("got %d bans for a confirming answer, want 0", gateway.banCount())
	}
	if gateway.replyCount() != 1 {
		t.Errorf("got %d announcements, want 1", gateway.replyCount())
	}
}

func TestAdapterResolvesDecline(t *testing.T) {
	adapter, manager, gateway, _ := newTestAdapter(t)

	adapter.HandleSync(context.Background(), syncWithEvents(joinEvent(testUserID, "Alice")))
	handle := gateway.polls[0].handle

	answer := messaging.Event{
		EventID: ref.MustParseEventID("$answer"),
		Type:    messaging.EventTypePollResponse,
		Sender:  testUserID,
		Content: messaging.NewPollResponse(handle.PollID.String(), []string{"option-1"}),
	}
	adapter.HandleSync(context.Background(), syncWithEvents(answer))

	if gateway.banCount() != 1 {
		t.Errorf("got %d bans for a declining answer, want 1", gateway.banCount())
	}
	if manager.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0", manager.PendingCount())
	}
}

func TestAdapterIgnoresMalformedAnswer(t *testing.T) {
	adapter, manager, gateway, _ := newTestAdapter(t)

	adapter.HandleSync(context.Background(), syncWithEvents(joinEvent(testUserID, "Alice")))

	events := []messaging.Event{
		// No poll reference.
		{
			EventID: ref.MustParseEventID("$bad1"),
			Type:    messaging.EventTypePollResponse,
			Sender:  testUserID,
			Content: map[string]any{
				"org.matrix.msc3381.poll.response": map[string]any{
					"answers": []any{"option-0"},
				},
			},
		},
		// Unrecognized answer ID.
		{
			EventID: ref.MustParseEventID("$bad2"),
			Type:    messaging.EventTypePollResponse,
			Sender:  testUserID,
			Content: messaging.NewPollResponse(gateway.polls[0].handle.PollID.String(), []string{"write-in"}),
		},
		// No content at all.
		{
			EventID: ref.MustParseEventID("$bad3"),
			Type:    messaging.EventTypePollResponse,
			Sender:  testUserID,
		},
	}
	adapter.HandleSync(context.Background(), syncWithEvents(events...))

	if manager.PendingCount() != 1 {
		t.Errorf("pending count = %d, want 1 (challenge survives malformed answers)", manager.PendingCount())
	}
	if gateway.replyCount() != 0 {
		t.Errorf("got %d announcements, want 0", gateway.replyCount())
	}
}
