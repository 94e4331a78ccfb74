package workflow

import (
	"context"
	"log/slog"
	"sync"

	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/services"
)

// Executor runs one job to a terminal state. Implementations record stage
// failures into the job themselves; a returned error is logged only.
type Executor interface {
	Execute(ctx context.Context, jobID string) error
}

// Manager owns the FIFO of pending job ids and the single consumer
// goroutine that drains it.
type Manager struct {
	store    *jobs.Store
	executor Executor
	logger   *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []string
	active  string
	closed  bool

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a queue manager. The executor is invoked once per
// dequeued job id.
func NewManager(store *jobs.Store, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:    store,
		executor: executor,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start recovers interrupted jobs from the store and launches the consumer.
// Calling Start on a running manager is an error.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return services.Wrap(services.ErrConflict, "workflow", "start", "queue already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.mu.Lock()
	m.closed = false
	m.mu.Unlock()

	m.recoverInterrupted()

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		<-runCtx.Done()
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		m.cond.Broadcast()
	}()
	go func() {
		defer m.wg.Done()
		m.consume(runCtx)
	}()

	m.logger.Info("queue started")
	return nil
}

// Stop shuts the consumer down and waits for the in-flight job to return.
func (m *Manager) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.running = false
	m.logger.Info("queue stopped")
}

// Enqueue appends a job id to the FIFO. It never blocks; after shutdown it
// fails instead of queueing work nobody will run.
func (m *Manager) Enqueue(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return services.Wrap(services.ErrConflict, "workflow", "enqueue", "queue is shut down", nil)
	}
	m.pending = append(m.pending, id)
	m.cond.Signal()
	return nil
}

// QueueStats reports the pending backlog and the id of the job currently
// executing, if any.
func (m *Manager) QueueStats() (pending int, active string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending), m.active
}

// Running reports whether the consumer is live.
func (m *Manager) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

// recoverInterrupted re-enqueues jobs that were queued or mid-run when the
// previous process exited, oldest first so original submission order holds.
func (m *Manager) recoverInterrupted() {
	list := m.store.List()
	for i := len(list) - 1; i >= 0; i-- {
		job := list[i]
		if job.Status != jobs.StatusQueued && job.Status != jobs.StatusRunning {
			continue
		}
		if job.Status == jobs.StatusRunning {
			if _, err := m.store.Mutate(job.ID, func(j *jobs.Job) {
				j.Status = jobs.StatusQueued
				j.Stage = jobs.StageImport
				j.AppendLog("Recovered after restart; re-queued.")
			}); err != nil {
				m.logger.Warn("failed to re-queue interrupted job",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err))
				continue
			}
		}
		m.mu.Lock()
		m.pending = append(m.pending, job.ID)
		m.mu.Unlock()
		m.logger.Info("job re-queued at startup", logging.String(logging.FieldJobID, job.ID))
	}
}

func (m *Manager) consume(ctx context.Context) {
	for {
		m.mu.Lock()
		for len(m.pending) == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.closed {
			m.mu.Unlock()
			return
		}
		id := m.pending[0]
		m.pending = m.pending[1:]
		m.active = id
		m.mu.Unlock()

		if err := m.executor.Execute(ctx, id); err != nil {
			m.logger.Warn("job finished with error",
				logging.String(logging.FieldJobID, id),
				logging.Error(err))
		}

		m.mu.Lock()
		m.active = ""
		m.mu.Unlock()
	}
}
