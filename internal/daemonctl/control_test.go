package daemonctl

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"murmur/internal/daemon"
	"murmur/internal/ipc"
	"murmur/internal/logging"
	"murmur/internal/testsupport"
)

func startTestServer(t *testing.T) (string, *daemon.Daemon) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	server, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logging.NewNop(), nil)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return cfg.SocketPath(), d
}

func TestProcessInfoWithoutSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "murmur.sock")
	reachable, pid, err := ProcessInfo(socket)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if reachable {
		t.Fatal("expected unreachable daemon")
	}
	if pid != 0 {
		t.Fatalf("expected zero pid, got %d", pid)
	}
}

func TestProcessInfoWithLiveServer(t *testing.T) {
	socket, _ := startTestServer(t)
	reachable, pid, err := ProcessInfo(socket)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if !reachable {
		t.Fatal("expected reachable daemon")
	}
	if pid <= 0 {
		t.Fatalf("expected positive pid, got %d", pid)
	}
}

func TestWaitForClientTimesOut(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "never.sock")
	start := time.Now()
	if _, err := WaitForClient(socket, 300*time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("wait loop ran far past the timeout: %s", elapsed)
	}
}

func TestWaitForClientConnectsToLiveServer(t *testing.T) {
	socket, _ := startTestServer(t)
	client, err := WaitForClient(socket, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForClient: %v", err)
	}
	defer client.Close()
	if _, err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestEnsureStartedDetectsRunningDaemon(t *testing.T) {
	socket, _ := startTestServer(t)
	result, err := EnsureStarted(socket, "/nonexistent/murmur", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning {
		t.Fatalf("expected already_running, got %s", result.State)
	}
	if result.Launched {
		t.Fatal("expected no launch when daemon answers")
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "gone.sock")
	if _, err := StopAndTerminate(socket, nil, time.Second); err != ErrDaemonNotRunning {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	status, err := BuildStatusSnapshot(cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected offline status")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected local dependency probes")
	}
	if status.LockPath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockPath)
	}
}

func TestBuildStatusSnapshotPrefersLiveDaemon(t *testing.T) {
	socket, d := startTestServer(t)
	cfg := testsupport.NewConfig(t)
	status, err := BuildStatusSnapshot(socket, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.SessionID != d.Status().SessionID {
		t.Fatalf("expected live session id %q, got %q", d.Status().SessionID, status.SessionID)
	}
}
