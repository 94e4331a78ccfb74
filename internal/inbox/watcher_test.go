package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"murmur/internal/logging"
	"murmur/internal/testsupport"
)

type submissions struct {
	mu    sync.Mutex
	paths []string
}

func (s *submissions) submit(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	return nil
}

func (s *submissions) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func waitForSubmission(t *testing.T, s *submissions, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		for _, path := range s.snapshot() {
			if path == want {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("file %q was never submitted (got %v)", want, s.snapshot())
}

func TestIsAudioFile(t *testing.T) {
	for _, path := range []string{"a.m4a", "b.MP3", "c.wav", "d.flac", "e.ogg", "f.aac"} {
		if !IsAudioFile(path) {
			t.Errorf("IsAudioFile(%q) = false, want true", path)
		}
	}
	for _, path := range []string{"notes.txt", "clip.mp4", "song"} {
		if IsAudioFile(path) {
			t.Errorf("IsAudioFile(%q) = true, want false", path)
		}
	}
}

func TestWatcherSubmitsSettledAudioFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox())
	subs := &submissions{}
	w := New(cfg, subs.submit, logging.NewNop())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(cfg.Inbox.Dir, "note.m4a")
	if err := os.WriteFile(path, []byte("audio payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitForSubmission(t, subs, path)
}

func TestWatcherIgnoresNonAudioFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox())
	subs := &submissions{}
	w := New(cfg, subs.submit, logging.NewNop())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	audio := filepath.Join(cfg.Inbox.Dir, "keep.wav")
	os.WriteFile(filepath.Join(cfg.Inbox.Dir, "skip.txt"), []byte("text"), 0o644)
	os.WriteFile(audio, []byte("audio"), 0o644)

	waitForSubmission(t, subs, audio)
	for _, path := range subs.snapshot() {
		if filepath.Ext(path) == ".txt" {
			t.Fatalf("non-audio file was submitted: %s", path)
		}
	}
}

func TestWatcherPicksUpPreexistingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox())
	if err := os.MkdirAll(cfg.Inbox.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfg.Inbox.Dir, "earlier.mp3")
	if err := os.WriteFile(path, []byte("already here"), 0o644); err != nil {
		t.Fatal(err)
	}

	subs := &submissions{}
	w := New(cfg, subs.submit, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitForSubmission(t, subs, path)
}

func TestWatcherSubmitsFileOnlyOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox())
	subs := &submissions{}
	w := New(cfg, subs.submit, logging.NewNop())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(cfg.Inbox.Dir, "once.flac")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForSubmission(t, subs, path)

	// A later metadata touch must not resubmit the same file.
	now := time.Now()
	os.Chtimes(path, now, now)
	os.WriteFile(path, []byte("audio"), 0o644)
	time.Sleep(2 * time.Second)

	count := 0
	for _, p := range subs.snapshot() {
		if p == path {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("file submitted %d times, want 1", count)
	}
}
