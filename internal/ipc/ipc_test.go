package ipc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"murmur/internal/artifacts"
	"murmur/internal/daemon"
	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/testsupport"
)

type testHarness struct {
	daemon *daemon.Daemon
	client *Client
	stops  atomic.Int32
}

// newTestHarness wires a daemon and an IPC client over a real Unix
// socket. The daemon is deliberately not started so submitted jobs
// stay queued instead of racing through the pipeline.
func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	h := &testHarness{daemon: d}
	ctx, cancel := context.WithCancel(context.Background())
	server, err := NewServer(ctx, cfg.SocketPath(), d, logging.NewNop(), func() {
		h.stops.Add(1)
	})
	if err != nil {
		cancel()
		t.Fatalf("NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	client, err := Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	h.client = client
	return h
}

func submitAudio(t *testing.T, h *testHarness, name string) Job {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteFile(t, path, 64)
	resp, err := h.client.Submit(path)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return resp.Job
}

func TestPingAndStatus(t *testing.T) {
	h := newTestHarness(t)

	ping, err := h.client.Ping()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !ping.Pong {
		t.Fatal("expected pong")
	}
	if ping.SessionID == "" {
		t.Fatal("expected session id in ping response")
	}

	status, err := h.client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status.Running {
		t.Fatal("daemon was never started, expected running=false")
	}
	if status.Status.PID != ping.PID {
		t.Fatalf("status PID %d does not match ping PID %d", status.Status.PID, ping.PID)
	}
	if len(status.Status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}

func TestSubmitGetAndLogRoundTrip(t *testing.T) {
	h := newTestHarness(t)

	job := submitAudio(t, h, "meeting.m4a")
	if job.ID == "" {
		t.Fatal("expected job id")
	}
	if job.Status != jobs.StatusQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}

	got, err := h.client.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Job.Filename != "meeting.m4a" {
		t.Fatalf("unexpected filename %q", got.Job.Filename)
	}

	log, err := h.client.JobLog(job.ID, 0)
	if err != nil {
		t.Fatalf("JobLog: %v", err)
	}
	if len(log.Lines) == 0 || !strings.Contains(log.Lines[0], "Queued") {
		t.Fatalf("expected queued log line, got %v", log.Lines)
	}

	tail, err := h.client.JobLog(job.ID, 1)
	if err != nil {
		t.Fatalf("JobLog tail: %v", err)
	}
	if len(tail.Lines) != 1 {
		t.Fatalf("expected one tailed line, got %d", len(tail.Lines))
	}
}

func TestListJobsFiltersByStatus(t *testing.T) {
	h := newTestHarness(t)

	submitAudio(t, h, "one.mp3")
	submitAudio(t, h, "two.mp3")

	all, err := h.client.ListJobs(nil)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(all.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all.Jobs))
	}

	queued, err := h.client.ListJobs([]string{string(jobs.StatusQueued)})
	if err != nil {
		t.Fatalf("ListJobs queued: %v", err)
	}
	if len(queued.Jobs) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(queued.Jobs))
	}

	done, err := h.client.ListJobs([]string{string(jobs.StatusDone)})
	if err != nil {
		t.Fatalf("ListJobs done: %v", err)
	}
	if len(done.Jobs) != 0 {
		t.Fatalf("expected no done jobs, got %d", len(done.Jobs))
	}

	if _, err := h.client.ListJobs([]string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown status name")
	}
}

func TestCancelAndDeleteJob(t *testing.T) {
	h := newTestHarness(t)

	job := submitAudio(t, h, "cancel-me.wav")
	cancelled, err := h.client.CancelJob(job.ID)
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if cancelled.Job.Status != jobs.StatusCancelled {
		t.Fatalf("expected cancelled job, got %s", cancelled.Job.Status)
	}

	// A second cancel hits a terminal job and must surface the error.
	if _, err := h.client.CancelJob(job.ID); err == nil {
		t.Fatal("expected error cancelling a terminal job")
	}

	deleted, err := h.client.DeleteJob(job.ID)
	if err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if !deleted.Deleted {
		t.Fatal("expected deleted=true")
	}
	if _, err := h.client.GetJob(job.ID); err == nil {
		t.Fatal("expected error fetching deleted job")
	}
}

func TestGetSegmentsAcrossSocket(t *testing.T) {
	h := newTestHarness(t)
	job := submitAudio(t, h, "lecture.m4a")

	empty, err := h.client.GetSegments(job.ID)
	if err != nil {
		t.Fatalf("GetSegments: %v", err)
	}
	if len(empty.Segments) != 0 {
		t.Fatalf("expected no segments before transcription, got %d", len(empty.Segments))
	}

	segmentsPath := filepath.Join(filepath.Dir(job.AudioPath), "whisper.json")
	payload := `[{"start":0.5,"end":2.0,"text":"hello over ipc"}]`
	if err := os.WriteFile(segmentsPath, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := h.daemon.Store().Mutate(job.ID, func(j *jobs.Job) {
		j.SegmentsPath = segmentsPath
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	resp, err := h.client.GetSegments(job.ID)
	if err != nil {
		t.Fatalf("GetSegments: %v", err)
	}
	if len(resp.Segments) != 1 || resp.Segments[0].Text != "hello over ipc" {
		t.Fatalf("unexpected segments %+v", resp.Segments)
	}

	if _, err := h.client.GetSegments("job_0_0"); err == nil {
		t.Fatal("expected error for unknown job id")
	}
}

func TestGetClipValidationAcrossSocket(t *testing.T) {
	h := newTestHarness(t)
	job := submitAudio(t, h, "lecture.m4a")

	if _, err := h.client.GetClip(job.ID, 2, 2); err == nil {
		t.Fatal("expected error for empty range")
	}
	if _, err := h.client.GetClip("job_0_0", 0, 1); err == nil {
		t.Fatal("expected error for unknown job id")
	}
}

func TestArtifactStatusesAndDownloadValidation(t *testing.T) {
	h := newTestHarness(t)

	statuses, err := h.client.ArtifactStatuses()
	if err != nil {
		t.Fatalf("ArtifactStatuses: %v", err)
	}
	if len(statuses.Statuses) < 2 {
		t.Fatalf("expected at least binary statuses, got %d", len(statuses.Statuses))
	}
	if statuses.Statuses[0].ID != artifacts.KeyWhisperBinary {
		t.Fatalf("expected %s first, got %s", artifacts.KeyWhisperBinary, statuses.Statuses[0].ID)
	}

	if _, err := h.client.StartArtifactDownload("not-an-artifact", ""); err == nil {
		t.Fatal("expected error for unknown artifact id")
	}
}

func TestEventsFlowAcrossSocket(t *testing.T) {
	h := newTestHarness(t)

	job := submitAudio(t, h, "events.flac")

	tail, err := h.client.TailEvents(0)
	if err != nil {
		t.Fatalf("TailEvents: %v", err)
	}
	if len(tail.Events) == 0 {
		t.Fatal("expected events after submit")
	}
	found := false
	for _, evt := range tail.Events {
		if evt.Job != nil && evt.Job.ID == job.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("no event referenced job %s", job.ID)
	}

	fetched, err := h.client.FetchEvents(0, 10, 0)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(fetched.Events) == 0 {
		t.Fatal("expected fetched events")
	}
	if fetched.Next == 0 {
		t.Fatal("expected a non-zero cursor")
	}
}

func TestStopInvokesCallback(t *testing.T) {
	h := newTestHarness(t)

	resp, err := h.client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected stopping=true")
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.stops.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stop callback never invoked")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
