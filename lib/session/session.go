// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package session persists the bot's Matrix session across restarts:
// a session.json file in the state directory holding the homeserver
// URL, user ID, and access token. The file is mode 0600 and its bytes
// are zeroed in memory as soon as they are parsed or written.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/doorkeep-project/doorkeep/lib/ref"
	"github.com/doorkeep-project/doorkeep/lib/secret"
	"github.com/doorkeep-project/doorkeep/messaging"
)

// Data is the JSON structure of session.json, written by the --login
// bootstrap flow.
type Data struct {
	HomeserverURL string `json:"homeserver_url"`
	UserID        string `json:"user_id"`
	AccessToken   string `json:"access_token"`
}

// Load reads the Matrix session from stateDir/session.json and
// returns an authenticated client and session. The homeserverURL
// parameter overrides the URL stored in the file when non-empty.
//
// The access token is moved into mmap-backed guarded memory by the
// messaging library; the raw JSON bytes are zeroed after parsing. The
// caller must Close the session when done.
func Load(stateDir, homeserverURL string, logger *slog.Logger) (*messaging.Client, *messaging.Session, error) {
	sessionPath := filepath.Join(stateDir, "session.json")

	jsonData, err := os.ReadFile(sessionPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading session from %s: %w", sessionPath, err)
	}

	var data Data
	if err := json.Unmarshal(jsonData, &data); err != nil {
		secret.Zero(jsonData)
		return nil, nil, fmt.Errorf("parsing session from %s: %w", sessionPath, err)
	}
	secret.Zero(jsonData)

	if data.AccessToken == "" {
		return nil, nil, fmt.Errorf("session file %s has empty access token", sessionPath)
	}

	serverURL := homeserverURL
	if serverURL == "" {
		serverURL = data.HomeserverURL
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: serverURL,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating matrix client: %w", err)
	}

	userID, err := ref.ParseUserID(data.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid user_id in %s: %w", sessionPath, err)
	}

	session, err := client.SessionFromToken(userID, data.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return client, session, nil
}

// Save writes a Matrix session to stateDir/session.json. The
// homeserver URL is stored alongside the user ID and access token so
// Load can reconstruct the client later.
//
// The JSON bytes are zeroed after writing to limit the window during
// which the access token exists in process memory as cleartext.
func Save(stateDir, homeserverURL string, session *messaging.Session) error {
	data := Data{
		HomeserverURL: homeserverURL,
		UserID:        session.UserID().String(),
		AccessToken:   session.AccessToken(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	sessionPath := filepath.Join(stateDir, "session.json")
	writeError := os.WriteFile(sessionPath, jsonData, 0600)
	secret.Zero(jsonData)

	if writeError != nil {
		return fmt.Errorf("writing session to %s: %w", sessionPath, writeError)
	}

	return nil
}

// Validate calls WhoAmI to verify the session's access token is still
// valid and returns the authenticated user ID. Called once at startup
// after Load to fail fast on a revoked token.
func Validate(ctx context.Context, session *messaging.Session) (ref.UserID, error) {
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("validating matrix session: %w", err)
	}
	return userID, nil
}
