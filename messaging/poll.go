// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"strconv"
	"strings"
)

// MSC3381 poll event types. Polls are still unstable-prefixed in the
// wild; the stable m.poll.* names are not yet emitted by the major
// clients, so Doorkeep sends and matches the org.matrix form.
const (
	// EventTypePollStart opens a poll.
	EventTypePollStart = "org.matrix.msc3381.poll.start"
	// EventTypePollResponse records one user's answer. The event
	// references the poll start via an m.reference relation and
	// carries the answering user as its sender.
	EventTypePollResponse = "org.matrix.msc3381.poll.response"

	// PollKindDisclosed makes votes visible while the poll is open —
	// the consent poll is deliberately non-anonymous.
	PollKindDisclosed = "org.matrix.msc3381.poll.disclosed"
)

// answerIDPrefix builds the stable answer IDs "option-0", "option-1",
// ... so that a response's answer ID maps back to an option index
// without consulting the original poll content.
const answerIDPrefix = "option-"

// PollAnswer is one selectable option in a poll start event.
type PollAnswer struct {
	ID   string `json:"id"`
	Text string `json:"org.matrix.msc1767.text"`
}

// PollQuestion is the question block of a poll start event.
type PollQuestion struct {
	Text string `json:"org.matrix.msc1767.text"`
}

// PollStart is the inner poll definition of a poll start event.
type PollStart struct {
	Question      PollQuestion `json:"question"`
	Kind          string       `json:"kind"`
	MaxSelections int          `json:"max_selections"`
	Answers       []PollAnswer `json:"answers"`
}

// PollStartContent is the full content of an
// org.matrix.msc3381.poll.start event, including the plain-text
// fallback for clients without poll support.
type PollStartContent struct {
	Poll     PollStart `json:"org.matrix.msc3381.poll.start"`
	Fallback string    `json:"org.matrix.msc1767.text"`
}

// NewPollStart builds a disclosed, single-answer poll with the given
// question and option texts. Option order is significant: answer IDs
// encode the option index.
func NewPollStart(question string, options []string) PollStartContent {
	answers := make([]PollAnswer, len(options))
	fallbackLines := make([]string, 0, len(options)+1)
	fallbackLines = append(fallbackLines, question)
	for index, text := range options {
		answers[index] = PollAnswer{
			ID:   answerIDPrefix + strconv.Itoa(index),
			Text: text,
		}
		fallbackLines = append(fallbackLines, fmt.Sprintf("%d. %s", index+1, text))
	}

	return PollStartContent{
		Poll: PollStart{
			Question:      PollQuestion{Text: question},
			Kind:          PollKindDisclosed,
			MaxSelections: 1,
			Answers:       answers,
		},
		Fallback: strings.Join(fallbackLines, "\n"),
	}
}

// AnswerIndex maps a poll response answer ID back to the option index
// it was generated from. Returns false for answer IDs Doorkeep did not
// generate.
func AnswerIndex(answerID string) (int, bool) {
	raw, found := strings.CutPrefix(answerID, answerIDPrefix)
	if !found {
		return 0, false
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// PollResponse is the decoded form of a poll response event: which
// poll it answers and which answer IDs were selected. Single-answer
// polls carry at most one meaningful selection; late selections are
// ignored by consumers.
type PollResponse struct {
	PollID  string
	Answers []string
}

// ParsePollResponse extracts the poll reference and selected answers
// from an org.matrix.msc3381.poll.response event. Returns false for
// events of other types or with a malformed response body.
func ParsePollResponse(event Event) (PollResponse, bool) {
	if event.Type != EventTypePollResponse {
		return PollResponse{}, false
	}

	relates, _ := event.Content["m.relates_to"].(map[string]any)
	pollID, _ := relates["event_id"].(string)
	if pollID == "" {
		return PollResponse{}, false
	}

	responseBlock, _ := event.Content["org.matrix.msc3381.poll.response"].(map[string]any)

	// JSON-decoded content carries answers as []any; content built
	// in-process (NewPollResponse) carries []string. Accept both.
	var answers []string
	switch rawAnswers := responseBlock["answers"].(type) {
	case []any:
		for _, raw := range rawAnswers {
			if answer, ok := raw.(string); ok {
				answers = append(answers, answer)
			}
		}
	case []string:
		answers = rawAnswers
	}
	if len(answers) == 0 {
		return PollResponse{}, false
	}

	return PollResponse{PollID: pollID, Answers: answers}, true
}

// NewPollResponse builds the content of a poll response event
// selecting the given answer IDs. Used by tests and by operators
// answering on a member's behalf.
func NewPollResponse(pollID string, answerIDs []string) map[string]any {
	return map[string]any{
		"m.relates_to": map[string]any{
			"rel_type": "m.reference",
			"event_id": pollID,
		},
		"org.matrix.msc3381.poll.response": map[string]any{
			"answers": answerIDs,
		},
	}
}
