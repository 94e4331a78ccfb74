package daemonrun

import (
	"context"
	"os"
	"testing"
	"time"

	"murmur/internal/daemonctl"
	"murmur/internal/testsupport"
)

func TestRunServesIPCAndStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Options{LogLevel: "error"})
	}()

	client, err := daemonctl.WaitForClient(cfg.SocketPath(), 5*time.Second)
	if err != nil {
		t.Fatalf("daemon never came up: %v", err)
	}
	ping, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if ping.PID != os.Getpid() {
		t.Fatalf("expected own pid %d, got %d", os.Getpid(), ping.PID)
	}
	_ = client.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("expected socket to be removed, stat err %v", err)
	}
}

func TestRunStopsOnIPCStopRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Options{LogLevel: "error"})
	}()

	client, err := daemonctl.WaitForClient(cfg.SocketPath(), 5*time.Second)
	if err != nil {
		t.Fatalf("daemon never came up: %v", err)
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected stopping=true")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after stop request")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
