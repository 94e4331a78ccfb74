package jobs_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"murmur/internal/jobs"
	"murmur/internal/services"
	"murmur/internal/testsupport"
)

func TestInsertPrependsAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.NewJob(t, store, cfg, "first.m4a")
	second := testsupport.NewJob(t, store, cfg, "second.m4a")

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering, got %s then %s", list[0].ID, list[1].ID)
	}

	if _, err := store.Mutate(first.ID, func(j *jobs.Job) {
		j.SetStage(jobs.StageTranscribe)
		j.SetProgress(0.42)
		j.TranscriptPath = "/artifacts/first.txt"
		j.AppendLog("transcribing")
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	list = reopened.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs after reload, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected ordering preserved after reload, got %s then %s", list[0].ID, list[1].ID)
	}
	restored := list[1]
	if restored.Status != jobs.StatusRunning || restored.Stage != jobs.StageTranscribe {
		t.Fatalf("unexpected restored state: %s/%s", restored.Status, restored.Stage)
	}
	if restored.Progress != 0.42 {
		t.Fatalf("unexpected restored progress: %f", restored.Progress)
	}
	if restored.TranscriptPath != "/artifacts/first.txt" {
		t.Fatalf("unexpected restored transcript path: %q", restored.TranscriptPath)
	}
	if len(restored.Log) != 1 || restored.Log[0] != "transcribing" {
		t.Fatalf("unexpected restored log: %v", restored.Log)
	}
	if !restored.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("creation timestamp did not round-trip: %v vs %v", restored.CreatedAt, first.CreatedAt)
	}
}

func TestInsertDoesNotRetainCallerPointer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := jobs.NewJob("/tmp/sample.m4a")
	inserted, err := store.Insert(job)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	job.Status = jobs.StatusError
	job.AppendLog("caller-side mutation")

	fetched, err := store.Get(inserted.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != jobs.StatusQueued {
		t.Fatalf("caller mutation leaked into store: %s", fetched.Status)
	}
	if len(fetched.Log) != 0 {
		t.Fatalf("caller log mutation leaked into store: %v", fetched.Log)
	}
}

func TestInsertDuplicateIDConflicts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := jobs.NewJob("/tmp/sample.m4a")
	if _, err := store.Insert(job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	dup := jobs.NewJob("/tmp/other.m4a")
	dup.ID = job.ID
	if _, err := store.Insert(dup); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestMutateMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Mutate("job_0_0", func(j *jobs.Job) {})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestMutateKeepsIDImmutable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg, "sample.m4a")

	updated, err := store.Mutate(job.ID, func(j *jobs.Job) {
		j.ID = "job_hijacked_1"
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if updated.ID != job.ID {
		t.Fatalf("expected id preserved, got %q", updated.ID)
	}
	if _, err := store.Get(job.ID); err != nil {
		t.Fatalf("expected job still reachable under original id: %v", err)
	}
}

func TestDeleteRemovesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg, "sample.m4a")

	if err := store.Delete(job.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	if err := store.Delete(job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	if got := len(reopened.List()); got != 0 {
		t.Fatalf("expected empty index after reload, got %d jobs", got)
	}
}

// diskCheckNotifier asserts that the index on disk already reflects a change
// when the notification for it fires.
type diskCheckNotifier struct {
	t       *testing.T
	path    string
	want    string
	updated int
	logs    []string
}

func (n *diskCheckNotifier) JobUpdated(job jobs.Job) {
	n.updated++
	data, err := os.ReadFile(n.path)
	if err != nil {
		n.t.Fatalf("read index during notify: %v", err)
	}
	if n.want != "" && !strings.Contains(string(data), n.want) {
		n.t.Fatalf("notification fired before save: %q missing from index", n.want)
	}
}

func (n *diskCheckNotifier) JobLog(id, line string) {
	n.logs = append(n.logs, id+"|"+line)
	data, err := os.ReadFile(n.path)
	if err != nil {
		n.t.Fatalf("read index during notify: %v", err)
	}
	if !strings.Contains(string(data), line) {
		n.t.Fatalf("log notification fired before save: %q missing from index", line)
	}
}

func TestSaveCompletesBeforeNotify(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, cfg, "sample.m4a")

	notifier := &diskCheckNotifier{t: t, path: store.Path(), want: "/artifacts/out.txt"}
	store.SetNotifier(notifier)

	if _, err := store.Mutate(job.ID, func(j *jobs.Job) {
		j.TranscriptPath = "/artifacts/out.txt"
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if notifier.updated != 1 {
		t.Fatalf("expected one update notification, got %d", notifier.updated)
	}

	if _, err := store.AppendLog(job.ID, "durable line"); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}
	if len(notifier.logs) != 1 || notifier.logs[0] != job.ID+"|durable line" {
		t.Fatalf("unexpected log notifications: %v", notifier.logs)
	}
}

func TestMissingIndexMeansEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if got := len(store.List()); got != 0 {
		t.Fatalf("expected empty store, got %d jobs", got)
	}
}

func TestCorruptIndexSurfacesFormatError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if err := os.WriteFile(cfg.IndexPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt index: %v", err)
	}
	if _, err := jobs.Open(cfg); !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error for corrupt index, got %v", err)
	}
}
