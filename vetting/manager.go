// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package vetting

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/doorkeep-project/doorkeep/lib/clock"
	"github.com/doorkeep-project/doorkeep/lib/ref"
)

// DefaultWindow is the time a joining user has to answer the consent
// poll before being banned.
const DefaultWindow = 30 * time.Minute

// expiryActionTimeout bounds the network work (ban, announcement) an
// expiry timer callback may perform. Timer callbacks have no caller
// context, so they get a fresh bounded one.
const expiryActionTimeout = time.Minute

// ManagerConfig configures a Manager. Gateway, Clock, Logger, RoomID,
// and RulesURL are required; Window defaults to DefaultWindow.
type ManagerConfig struct {
	Gateway  Gateway
	Clock    clock.Clock
	Logger   *slog.Logger
	RoomID   ref.RoomID
	RulesURL string
	Window   time.Duration
}

// Manager owns the table of in-flight challenges and enforces the
// consent protocol. All methods are safe for concurrent use: a single
// mutex guards the table and the timer map, and every operation is a
// linearizable check-and-act under it. Network calls happen outside
// the lock.
type Manager struct {
	gateway  Gateway
	clk      clock.Clock
	logger   *slog.Logger
	roomID   ref.RoomID
	rulesURL string
	window   time.Duration

	mu      sync.Mutex
	pending map[ref.UserID]*Challenge
	timers  map[ref.UserID]*clock.Timer
}

// NewManager creates a Manager with no pending challenges.
func NewManager(config ManagerConfig) *Manager {
	window := config.Window
	if window == 0 {
		window = DefaultWindow
	}
	return &Manager{
		gateway:  config.Gateway,
		clk:      config.Clock,
		logger:   config.Logger,
		roomID:   config.RoomID,
		rulesURL: config.RulesURL,
		window:   window,
		pending:  make(map[ref.UserID]*Challenge),
		timers:   make(map[ref.UserID]*clock.Timer),
	}
}

// Window returns the configured challenge window.
func (m *Manager) Window() time.Duration {
	return m.window
}

// StartChallenge begins vetting a newly joined user: it posts the
// consent poll and arms the expiry timer. Duplicate join
// notifications for a user with a pending challenge are absorbed,
// including concurrent ones — the table slot is reserved under the
// lock before the poll is sent, so two racing joins can never produce
// two polls.
//
// If the poll cannot be sent, no challenge is tracked: a fallback
// notice is posted asking the user to open a direct chat with the bot
// and rejoin, and the join is otherwise forgotten.
func (m *Manager) StartChallenge(ctx context.Context, userID ref.UserID, displayName string) Outcome {
	m.mu.Lock()
	if _, exists := m.pending[userID]; exists {
		m.mu.Unlock()
		m.logger.Info("duplicate join for user with pending challenge",
			"user_id", userID,
		)
		return OutcomeAlreadyChallenged
	}
	// Reserve the slot before sending. The reservation has a zero
	// PollID, so an answer racing the send is absorbed by the poll ID
	// check in ResolveAnswer.
	reservation := &Challenge{
		UserID:      userID,
		RoomID:      m.roomID,
		DisplayName: displayName,
	}
	m.pending[userID] = reservation
	m.mu.Unlock()

	question := ConsentQuestion(displayName, m.rulesURL, m.window)
	handle, err := m.gateway.SendPoll(ctx, m.roomID, question, ConsentOptions())
	if err != nil {
		m.mu.Lock()
		delete(m.pending, userID)
		m.mu.Unlock()

		m.logger.Error("failed to send consent poll",
			"user_id", userID,
			"error", err,
		)
		if noticeErr := m.gateway.SendMessage(ctx, m.roomID, PollFailedNotice(displayName)); noticeErr != nil {
			m.logger.Error("failed to post poll-failure notice",
				"user_id", userID,
				"error", noticeErr,
			)
		}
		return OutcomePollFailed
	}

	m.mu.Lock()
	m.pending[userID] = &Challenge{
		UserID:      userID,
		PollID:      handle.PollID,
		RoomID:      m.roomID,
		PromptID:    handle.PromptID,
		DisplayName: displayName,
		CreatedAt:   m.clk.Now(),
	}
	// The callback captures the poll ID so a callback already in
	// flight when its timer is stopped cannot expire a fresh
	// challenge from an immediate rejoin.
	pollID := handle.PollID
	m.timers[userID] = m.clk.AfterFunc(m.window, func() {
		ctx, cancel := context.WithTimeout(context.Background(), expiryActionTimeout)
		defer cancel()
		m.ExpireChallenge(ctx, userID, pollID)
	})
	m.mu.Unlock()

	m.logger.Info("consent poll sent",
		"user_id", userID,
		"poll_id", handle.PollID,
		"window", m.window,
	)
	return OutcomeChallenged
}

// ResolveAnswer concludes a challenge with the user's poll answer.
// Option index 1 declines the rules: the user is banned (best-effort)
// and the rejection is announced. Any other index confirms: the
// acceptance is announced. Both paths remove the table entry and stop
// the expiry timer before acting, so a concurrent expiry finds
// nothing.
//
// Answers for users with no pending challenge, or referencing a poll
// other than the stored one, are absorbed as no-ops.
func (m *Manager) ResolveAnswer(ctx context.Context, userID ref.UserID, pollID ref.EventID, optionIndex int) Outcome {
	m.mu.Lock()
	challenge, exists := m.pending[userID]
	if !exists {
		m.mu.Unlock()
		return OutcomeNoChallenge
	}
	if challenge.PollID != pollID {
		m.mu.Unlock()
		m.logger.Warn("poll answer references mismatched poll",
			"user_id", userID,
			"answer_poll_id", pollID,
			"pending_poll_id", challenge.PollID,
		)
		return OutcomePollMismatch
	}
	delete(m.pending, userID)
	timer := m.timers[userID]
	delete(m.timers, userID)
	m.mu.Unlock()

	// Stopping the timer after removal is safe either way: if the
	// callback is already running it finds the entry gone and no-ops.
	if timer != nil {
		timer.Stop()
	}

	if optionIndex == 1 {
		m.banAndAnnounce(ctx, challenge, "declined the community rules", RejectedAnnouncement(challenge.DisplayName))
		m.logger.Info("user declined the rules",
			"user_id", userID,
			"poll_id", pollID,
		)
		return OutcomeRejected
	}

	if err := m.gateway.SendThreadReply(ctx, challenge.RoomID, challenge.PromptID, AcceptedAnnouncement(challenge.DisplayName)); err != nil {
		m.logger.Error("failed to announce acceptance",
			"user_id", userID,
			"error", err,
		)
	}
	m.logger.Info("user accepted the rules",
		"user_id", userID,
		"poll_id", pollID,
	)
	return OutcomeAccepted
}

// ExpireChallenge concludes a challenge whose window elapsed without
// an answer: the user is banned (best-effort) and the timeout is
// announced. Runs from the expiry timer callback; if the answer path
// already removed the entry, including a resolution that raced the
// timer firing, this is a no-op. The pollID must match the stored
// challenge: a stale callback that outlived its Stop cannot expire a
// fresh challenge from a rejoin.
func (m *Manager) ExpireChallenge(ctx context.Context, userID ref.UserID, pollID ref.EventID) Outcome {
	m.mu.Lock()
	challenge, exists := m.pending[userID]
	if !exists {
		m.mu.Unlock()
		return OutcomeNoChallenge
	}
	if challenge.PollID != pollID {
		m.mu.Unlock()
		m.logger.Warn("stale expiry for superseded challenge",
			"user_id", userID,
			"expired_poll_id", pollID,
			"pending_poll_id", challenge.PollID,
		)
		return OutcomePollMismatch
	}
	delete(m.pending, userID)
	delete(m.timers, userID)
	m.mu.Unlock()

	m.banAndAnnounce(ctx, challenge, "did not answer the consent poll in time", TimedOutAnnouncement(challenge.DisplayName))
	m.logger.Info("challenge timed out",
		"user_id", userID,
		"poll_id", challenge.PollID,
	)
	return OutcomeTimedOut
}

// banAndAnnounce performs a terminal ban-and-announce: the ban is
// best-effort (failure is logged, the outcome stays final), and the
// announcement threads to the prompt message.
func (m *Manager) banAndAnnounce(ctx context.Context, challenge *Challenge, reason, announcement string) {
	if err := m.gateway.BanUser(ctx, challenge.RoomID, challenge.UserID, reason); err != nil {
		m.logger.Error("failed to ban user",
			"user_id", challenge.UserID,
			"error", err,
		)
	}
	if err := m.gateway.SendThreadReply(ctx, challenge.RoomID, challenge.PromptID, announcement); err != nil {
		m.logger.Error("failed to announce verdict",
			"user_id", challenge.UserID,
			"error", err,
		)
	}
}

// Pending returns a snapshot of the in-flight challenges, ordered by
// creation time. Served over the admin socket.
func (m *Manager) Pending() []Challenge {
	m.mu.Lock()
	snapshot := make([]Challenge, 0, len(m.pending))
	for _, challenge := range m.pending {
		snapshot = append(snapshot, *challenge)
	}
	m.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].CreatedAt.Equal(snapshot[j].CreatedAt) {
			return snapshot[i].UserID.String() < snapshot[j].UserID.String()
		}
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})
	return snapshot
}

// PendingCount returns the number of in-flight challenges.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
