// Package inbox watches a drop directory and submits new audio files as
// jobs once their size has settled, so half-copied files never enter the
// queue.
package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/services"
)

// Submitter receives the path of a settled audio file.
type Submitter func(path string) error

var audioExtensions = []string{".m4a", ".mp3", ".wav", ".flac", ".ogg", ".aac"}

// IsAudioFile reports whether path carries a supported audio extension.
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range audioExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

type pendingFile struct {
	size      int64
	stableFor time.Duration
}

// Watcher monitors the inbox directory.
type Watcher struct {
	dir    string
	settle time.Duration
	submit Submitter
	logger *slog.Logger

	mu        sync.Mutex
	pending   map[string]*pendingFile
	submitted map[string]bool

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watcher *fsnotify.Watcher
}

// New builds a watcher for the configured inbox directory.
func New(cfg *config.Config, submit Submitter, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:       cfg.Inbox.Dir,
		settle:    time.Duration(cfg.Inbox.SettleSeconds) * time.Second,
		submit:    submit,
		logger:    logging.NewComponentLogger(logger, "inbox"),
		pending:   make(map[string]*pendingFile),
		submitted: make(map[string]bool),
	}
}

// Start registers the directory with fsnotify and launches the event and
// settle loops. Files already sitting in the inbox are picked up too.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return services.Wrap(services.ErrIO, "inbox", "start", "create inbox dir", err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrIO, "inbox", "start", "create fs watcher", err)
	}
	if err := fsWatcher.Add(w.dir); err != nil {
		fsWatcher.Close()
		return services.Wrap(services.ErrIO, "inbox", "start", "watch inbox dir", err)
	}
	w.watcher = fsWatcher

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.scanExisting()

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.eventLoop(runCtx)
	}()
	go func() {
		defer w.wg.Done()
		w.settleLoop(runCtx)
	}()

	w.logger.Info("inbox watcher started", slog.String("dir", w.dir))
	return nil
}

// Stop shuts the watcher down and waits for the loops to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.watcher.Close()
	w.wg.Wait()
	w.logger.Info("inbox watcher stopped")
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if IsAudioFile(path) {
			w.track(path)
		}
	}
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !IsAudioFile(event.Name) {
				continue
			}
			w.track(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) track(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted[path] {
		return
	}
	if _, ok := w.pending[path]; !ok {
		w.pending[path] = &pendingFile{size: -1}
		w.logger.Info("audio file detected", slog.String("path", path))
	}
}

const settlePollInterval = 500 * time.Millisecond

// settleLoop polls pending files until their size stops changing for the
// settle window, then hands them to the submitter.
func (w *Watcher) settleLoop(ctx context.Context) {
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollPending()
		}
	}
}

func (w *Watcher) pollPending() {
	var ready []string

	w.mu.Lock()
	for path, state := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != state.size {
			state.size = info.Size()
			state.stableFor = 0
			continue
		}
		state.stableFor += settlePollInterval
		if state.stableFor >= w.settle {
			delete(w.pending, path)
			w.submitted[path] = true
			ready = append(ready, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if err := w.submit(path); err != nil {
			w.logger.Warn("inbox submission failed",
				slog.String("path", path),
				logging.Error(err))
			continue
		}
		w.logger.Info("inbox file submitted", slog.String("path", path))
	}
}
