// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/doorkeep-project/doorkeep/lib/config"
	"github.com/doorkeep-project/doorkeep/lib/secret"
	"github.com/doorkeep-project/doorkeep/lib/session"
	"github.com/doorkeep-project/doorkeep/messaging"
)

// runLogin performs a password login against the configured
// homeserver and saves the resulting session to the state directory.
// The bot is then started without --login and picks the session up.
func runLogin(ctx context.Context, cfg *config.Config, username, passwordFile string, logger *slog.Logger) error {
	if username == "" {
		return fmt.Errorf("--username is required with --login")
	}

	password, err := readLoginPassword(passwordFile)
	if err != nil {
		return err
	}
	defer password.Close()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	matrixSession, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	defer matrixSession.Close()

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := session.Save(cfg.StateDir, cfg.HomeserverURL, matrixSession); err != nil {
		return err
	}

	logger.Info("session saved",
		"user_id", matrixSession.UserID(),
		"state_dir", cfg.StateDir,
	)
	return nil
}

// readLoginPassword reads the login password. A non-empty
// passwordFile names a file to read ("-" for stdin); otherwise the
// terminal is prompted with echo disabled.
func readLoginPassword(passwordFile string) (*secret.Buffer, error) {
	if passwordFile != "" {
		return secret.ReadFromPath(passwordFile)
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, fmt.Errorf("no terminal available for password prompt (use --password-file)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(stdinFileDescriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	buffer, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, err
	}
	return buffer, nil
}
