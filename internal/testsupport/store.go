package testsupport

import (
	"path/filepath"
	"testing"

	"murmur/internal/config"
	"murmur/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	return store
}

// NewJob inserts a queued job for tests, backed by a real file in the work
// directory so stages that stat the source succeed.
func NewJob(t testing.TB, store *jobs.Store, cfg *config.Config, filename string) jobs.Job {
	t.Helper()

	audioPath := filepath.Join(cfg.Paths.WorkDir, filename)
	WriteFile(t, audioPath, 256)
	job := jobs.NewJob(audioPath)
	inserted, err := store.Insert(job)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return inserted
}
