package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"murmur/internal/artifacts"
	"murmur/internal/config"
	"murmur/internal/deps"
	"murmur/internal/events"
	"murmur/internal/inbox"
	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/pipeline"
	"murmur/internal/preflight"
	"murmur/internal/services"
	"murmur/internal/services/ffmpeg"
	"murmur/internal/workflow"
)

const eventHubCapacity = 1024

// Daemon owns the processing services and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string
	startedAt time.Time

	store     *jobs.Store
	hub       *events.Hub
	artifacts *artifacts.Manager
	executor  *pipeline.Executor
	queue     *workflow.Manager
	watcher   *inbox.Watcher

	// Clip extraction hooks, struct fields so tests can substitute them
	// without spawning processes.
	resolveFFmpeg func() (string, error)
	extractClip   func(ctx context.Context, ffmpegPath, source, dest string, startSec, endSec float64) error

	lock    *flock.Flock
	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is the daemon runtime snapshot returned over IPC.
type Status struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	SessionID    string        `json:"session_id"`
	StartedAt    time.Time     `json:"started_at"`
	QueuePending int           `json:"queue_pending"`
	ActiveJobID  string        `json:"active_job_id,omitempty"`
	SocketPath   string        `json:"socket_path"`
	LockPath     string        `json:"lock_path"`
	Dependencies []deps.Status `json:"dependencies"`
}

// New constructs a daemon with initialized dependencies. The store is
// opened here so boot recovery sees the persisted index.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConflict, "daemon", "new", "config is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrIO, "daemon", "new", "prepare directories", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, err
	}
	hub := events.NewHub(eventHubCapacity)
	store.SetNotifier(events.NewPublisher(hub))

	executor := pipeline.NewExecutor(cfg, store, logger)
	resolver := deps.NewResolver(cfg)
	d := &Daemon{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		sessionID:     uuid.NewString(),
		store:         store,
		hub:           hub,
		artifacts:     artifacts.NewManager(cfg, logger),
		executor:      executor,
		queue:         workflow.NewManager(store, executor, logger),
		lock:          flock.New(cfg.LockPath()),
		resolveFFmpeg: resolver.FFmpeg,
		extractClip: func(ctx context.Context, ffmpegPath, source, dest string, startSec, endSec float64) error {
			return ffmpeg.NewClient(ffmpegPath).ExtractClip(ctx, source, dest, startSec, endSec, nil)
		},
	}
	if cfg.Inbox.Enabled {
		d.watcher = inbox.New(cfg, func(path string) error {
			_, err := d.Submit(path)
			return err
		}, logger)
	}
	return d, nil
}

// Start acquires the daemon lock and launches the queue and inbox watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return services.Wrap(services.ErrConflict, "daemon", "start", "daemon already running", nil)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrIO, "daemon", "start", "acquire lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrConflict, "daemon", "start",
			"another murmur daemon instance is already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.queue.Start(runCtx); err != nil {
		d.lock.Unlock()
		cancel()
		return err
	}
	if d.watcher != nil {
		if err := d.watcher.Start(runCtx); err != nil {
			d.logger.Warn("inbox watcher failed to start", logging.Error(err))
			d.watcher = nil
		}
	}

	for _, result := range preflight.RunAll(runCtx, d.cfg) {
		if result.Passed {
			continue
		}
		d.logger.Warn("preflight check failed",
			slog.String("check", result.Name),
			slog.String("detail", result.Detail))
	}

	d.running.Store(true)
	d.startedAt = time.Now().UTC()
	d.logger.Info("murmur daemon started",
		slog.String("session_id", d.sessionID),
		slog.String("lock", d.cfg.LockPath()))
	return nil
}

// Stop shuts everything down in dependency order and releases the lock.
// In-flight detached tasks are drained before the lock is released.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.queue.Stop()
	d.executor.Wait()
	d.artifacts.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("murmur daemon stopped")
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status assembles the runtime snapshot.
func (d *Daemon) Status() Status {
	pending, active := d.queue.QueueStats()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SessionID:    d.sessionID,
		StartedAt:    d.startedAt,
		QueuePending: pending,
		ActiveJobID:  active,
		SocketPath:   d.cfg.SocketPath(),
		LockPath:     d.cfg.LockPath(),
		Dependencies: deps.Check(d.cfg),
	}
}

// Store exposes the job store for the IPC layer.
func (d *Daemon) Store() *jobs.Store {
	return d.store
}

// Hub exposes the event hub for the IPC layer.
func (d *Daemon) Hub() *events.Hub {
	return d.hub
}

// Artifacts exposes the artifact manager for the IPC layer.
func (d *Daemon) Artifacts() *artifacts.Manager {
	return d.artifacts
}

// Summarize runs (or re-runs with force) the summarization pass of a job.
func (d *Daemon) Summarize(ctx context.Context, id string, force bool) (jobs.Job, error) {
	return d.executor.Summarize(ctx, id, force)
}

// Cancel marks a job cancelled. Running stages observe the status between
// stage boundaries; terminal jobs are left untouched.
func (d *Daemon) Cancel(id string) (jobs.Job, error) {
	job, err := d.store.Get(id)
	if err != nil {
		return jobs.Job{}, err
	}
	if job.IsTerminal() {
		return jobs.Job{}, services.Wrap(services.ErrConflict, "daemon", "cancel",
			fmt.Sprintf("job is already %s", job.Status), nil)
	}
	return d.store.Mutate(id, func(j *jobs.Job) {
		j.SetCancelled()
		j.AppendLog("Job cancelled.")
	})
}

// Delete removes a job from the index and its working directory.
func (d *Daemon) Delete(id string) error {
	job, err := d.store.Get(id)
	if err != nil {
		return err
	}
	if err := d.store.Delete(id); err != nil {
		return err
	}
	removeJobDir(d.cfg, job)
	return nil
}
