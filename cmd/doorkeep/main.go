// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Doorkeep is a Matrix gatekeeper bot: every newcomer to the watched
// room gets a timed consent poll referencing the community rules, and
// is banned unless they confirm before the window closes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/doorkeep-project/doorkeep/lib/clock"
	"github.com/doorkeep-project/doorkeep/lib/config"
	"github.com/doorkeep-project/doorkeep/lib/ref"
	"github.com/doorkeep-project/doorkeep/lib/session"
	"github.com/doorkeep-project/doorkeep/lib/socket"
	"github.com/doorkeep-project/doorkeep/messaging"
	"github.com/doorkeep-project/doorkeep/vetting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		doLogin      bool
		username     string
		passwordFile string
	)

	pflag.StringVar(&configPath, "config", "", "path to config file (default: $"+config.EnvVar+")")
	pflag.BoolVar(&doLogin, "login", false, "log in and save the session, then exit")
	pflag.StringVar(&username, "username", "", "Matrix username for --login")
	pflag.StringVar(&passwordFile, "password-file", "", "file containing the password for --login, or - for stdin (default: prompt)")
	pflag.Parse()

	path, err := config.Locate(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if doLogin {
		return runLogin(ctx, cfg, username, passwordFile, logger)
	}
	return serve(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	_, matrixSession, err := session.Load(cfg.StateDir, cfg.HomeserverURL, logger)
	if err != nil {
		return fmt.Errorf("loading session (run with --login first?): %w", err)
	}
	defer matrixSession.Close()

	selfID, err := session.Validate(ctx, matrixSession)
	if err != nil {
		return err
	}
	logger.Info("matrix session valid", "user_id", selfID)

	roomID, err := resolveRoom(ctx, matrixSession, cfg.Room)
	if err != nil {
		return err
	}
	if _, err := matrixSession.JoinRoom(ctx, roomID); err != nil {
		return fmt.Errorf("joining %s: %w", roomID, err)
	}
	logger.Info("watching room", "room_id", roomID)

	clk := clock.Real()
	manager := vetting.NewManager(vetting.ManagerConfig{
		Gateway:  vetting.NewMatrixGateway(matrixSession),
		Clock:    clk,
		Logger:   logger,
		RoomID:   roomID,
		RulesURL: cfg.RulesURL,
		Window:   time.Duration(cfg.ChallengeWindow),
	})
	adapter := vetting.NewAdapter(manager, selfID, roomID, logger)

	// The initial sync snapshot is discarded: members already in the
	// room at startup are not challenged, and in-flight challenges
	// from a previous run are gone (state is process-lifetime only).
	sinceToken, _, err := messaging.InitialSync(ctx, matrixSession, vetting.SyncFilter)
	if err != nil {
		return err
	}

	var socketDone chan error
	if cfg.AdminSocket != "" {
		server := socket.NewServer(cfg.AdminSocket, logger)
		registerAdminActions(server, manager, selfID, roomID, clk)
		socketDone = make(chan error, 1)
		go func() { socketDone <- server.Serve(ctx) }()
	}

	go messaging.RunSyncLoop(ctx, matrixSession, messaging.SyncConfig{
		Filter: vetting.SyncFilter,
	}, sinceToken, adapter.HandleSync, clk, logger)

	logger.Info("doorkeep running",
		"room_id", roomID,
		"window", manager.Window(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if socketDone != nil {
		if err := <-socketDone; err != nil {
			logger.Error("admin socket error", "error", err)
		}
	}
	return nil
}

// resolveRoom turns the configured room (ID or alias) into a room ID.
func resolveRoom(ctx context.Context, matrixSession *messaging.Session, room string) (ref.RoomID, error) {
	if strings.HasPrefix(room, "#") {
		alias, err := ref.ParseRoomAlias(room)
		if err != nil {
			return ref.RoomID{}, fmt.Errorf("invalid room alias: %w", err)
		}
		roomID, err := matrixSession.ResolveAlias(ctx, alias)
		if err != nil {
			return ref.RoomID{}, fmt.Errorf("resolving %s: %w", alias, err)
		}
		return roomID, nil
	}
	roomID, err := ref.ParseRoomID(room)
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("invalid room ID: %w", err)
	}
	return roomID, nil
}
