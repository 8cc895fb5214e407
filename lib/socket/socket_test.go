// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/doorkeep-project/doorkeep/lib/codec"
)

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	// Signal that we're done writing (half-close). CBOR is self-
	// delimiting so this isn't required by the protocol, but it's
	// good hygiene.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// startServer runs a server for the duration of the test, waiting
// until the socket accepts connections before returning. A stale
// socket file may exist at the path before Serve replaces it, so
// readiness is a successful dial, not file existence.
func startServer(t *testing.T, server *Server) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", server.socketPath, time.Second)
		if err == nil {
			conn.Close()
			return server.socketPath
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("socket never accepted a connection")
	return ""
}

func TestServerDispatch(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "admin.sock")
	server := NewServer(socketPath, testLogger())

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"pending": 3}, nil
	})
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("action exploded")
	})
	server.Handle("empty", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	t.Run("success with data", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]string{"action": "status"})
		if !response.OK {
			t.Fatalf("response not OK: %s", response.Error)
		}
		var data struct {
			Pending int `cbor:"pending"`
		}
		if err := codec.Unmarshal(response.Data, &data); err != nil {
			t.Fatalf("decoding response data: %v", err)
		}
		if data.Pending != 3 {
			t.Errorf("pending = %d, want 3", data.Pending)
		}
	})

	t.Run("success without data", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]string{"action": "empty"})
		if !response.OK {
			t.Fatalf("response not OK: %s", response.Error)
		}
		if len(response.Data) != 0 {
			t.Errorf("expected empty data, got %d bytes", len(response.Data))
		}
	})

	t.Run("handler error", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]string{"action": "fail"})
		if response.OK {
			t.Fatal("expected failure response")
		}
		if response.Error != "action exploded" {
			t.Errorf("error = %q", response.Error)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]string{"action": "nonsense"})
		if response.OK {
			t.Fatal("expected failure response")
		}
	})

	t.Run("missing action", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]string{"other": "field"})
		if response.OK {
			t.Fatal("expected failure response")
		}
		if response.Error != "missing required field: action" {
			t.Errorf("error = %q", response.Error)
		}
	})
}

func TestServerRemovesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "admin.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("creating stale socket file: %v", err)
	}

	server := NewServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Fatalf("response not OK: %s", response.Error)
	}
}

func TestServerDuplicateHandlerPanics(t *testing.T) {
	server := NewServer(filepath.Join(t.TempDir(), "admin.sock"), testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate handler registration")
		}
	}()
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })
}
