package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/testsupport"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func waitForTerminalJob(t *testing.T, d *Daemon, id string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := d.Store().Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return jobs.Job{}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestSubmitCopiesAudioIntoJobDir(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	source := filepath.Join(t.TempDir(), "standup notes.m4a")
	if err := os.WriteFile(source, []byte("audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	job, err := d.Submit(source)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Filename != "standup notes.m4a" {
		t.Fatalf("filename = %q", job.Filename)
	}
	if !strings.HasSuffix(job.AudioPath, "audio.original.m4a") {
		t.Fatalf("audio should be copied under a fixed name, got %q", job.AudioPath)
	}
	if !strings.HasPrefix(job.AudioPath, d.cfg.JobsDir()) {
		t.Fatalf("audio copy should live under the jobs dir, got %q", job.AudioPath)
	}
	data, err := os.ReadFile(job.AudioPath)
	if err != nil {
		t.Fatalf("job audio copy missing: %v", err)
	}
	if string(data) != "audio bytes" {
		t.Fatal("audio copy content mismatch")
	}

	// The stubbed environment has no binaries, so the job fails, but it
	// must reach a terminal state without wedging the queue.
	final := waitForTerminalJob(t, d, job.ID)
	if final.Status != jobs.StatusError {
		t.Fatalf("expected error without binaries, got %s", final.Status)
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if _, err := d.Submit(filepath.Join(t.TempDir(), "ghost.m4a")); err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestCancelQueuedJob(t *testing.T) {
	d := newTestDaemon(t)

	job := testsupport.NewJob(t, d.Store(), d.cfg, "waiting.m4a")
	cancelled, err := d.Cancel(job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != jobs.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := d.Cancel(job.ID); err == nil {
		t.Fatal("cancelling a terminal job should fail")
	}
}

func TestDeleteRemovesJobAndDirectory(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	source := filepath.Join(t.TempDir(), "trash.m4a")
	os.WriteFile(source, []byte("x"), 0o644)
	job, err := d.Submit(source)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForTerminalJob(t, d, job.ID)

	jobDir := filepath.Dir(job.AudioPath)
	if err := d.Delete(job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.Store().Get(job.ID); err == nil {
		t.Fatal("deleted job should not be found")
	}
	if _, err := os.Stat(jobDir); !os.IsNotExist(err) {
		t.Fatal("job directory should be removed")
	}
}

func TestStatusReportsQueueAndDependencies(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status()
	if !status.Running {
		t.Fatal("status should report running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}
	if status.SessionID == "" {
		t.Fatal("session id should be set")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("dependency summary should be included")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("status should report stopped after Stop")
	}
}
