package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"murmur/internal/config"
	"murmur/internal/fileutil"
	"murmur/internal/services"
)

// Notifier receives change notifications. The store invokes it only after
// the mutation has been durably saved, so observers never see state a crash
// could roll back.
type Notifier interface {
	JobUpdated(job Job)
	JobLog(id, line string)
}

// Store manages job persistence backed by a single JSON index document.
type Store struct {
	mu       sync.Mutex
	path     string
	jobs     []*Job
	notifier Notifier
}

type indexDocument struct {
	Jobs []*Job `json:"jobs"`
}

// Open loads (or initializes) the job index under the configured state
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	store := &Store{path: cfg.IndexPath()}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// SetNotifier installs the change observer. Pass nil to detach.
func (s *Store) SetNotifier(notifier Notifier) {
	s.mu.Lock()
	s.notifier = notifier
	s.mu.Unlock()
}

// Path returns the index document location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.jobs = nil
			return nil
		}
		return services.Wrap(services.ErrIO, "jobs", "load", "read index", err)
	}
	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return services.Wrap(services.ErrFormat, "jobs", "load", "parse index", err)
	}
	s.jobs = doc.Jobs
	return nil
}

// persistLocked rewrites the whole index document. Callers must hold s.mu.
func (s *Store) persistLocked() error {
	doc := indexDocument{Jobs: s.jobs}
	if doc.Jobs == nil {
		doc.Jobs = []*Job{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, "jobs", "save", "encode index", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "jobs", "save", "write index", err)
	}
	return nil
}

// List returns snapshots of every job in recency order (newest first).
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out
}

// Get returns a snapshot of the job with the given id.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ID == id {
			return job.Clone(), nil
		}
	}
	return Job{}, services.Wrap(services.ErrNotFound, "jobs", "get", fmt.Sprintf("job %s not found", id), nil)
}

// Insert prepends a new job, preserving recency order, and persists the
// index before notifying observers.
func (s *Store) Insert(job *Job) (Job, error) {
	if job == nil {
		return Job{}, errors.New("job is nil")
	}
	if job.ID == "" {
		return Job{}, errors.New("job id is empty")
	}

	s.mu.Lock()
	for _, existing := range s.jobs {
		if existing.ID == job.ID {
			s.mu.Unlock()
			return Job{}, services.Wrap(services.ErrConflict, "jobs", "insert", fmt.Sprintf("job %s already exists", job.ID), nil)
		}
	}
	owned := job.Clone()
	s.jobs = append([]*Job{&owned}, s.jobs...)
	if err := s.persistLocked(); err != nil {
		s.jobs = s.jobs[1:]
		s.mu.Unlock()
		return Job{}, err
	}
	snapshot := owned.Clone()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.JobUpdated(snapshot)
	}
	return snapshot, nil
}

// Mutate applies fn to the job with the given id, persists the index, and
// returns the updated snapshot. fn runs under the store lock and must not
// retain the pointer or call back into the store.
func (s *Store) Mutate(id string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	var target *Job
	for _, job := range s.jobs {
		if job.ID == id {
			target = job
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "mutate", fmt.Sprintf("job %s not found", id), nil)
	}
	fn(target)
	target.ID = id // id is immutable after creation
	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return Job{}, err
	}
	snapshot := target.Clone()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.JobUpdated(snapshot)
	}
	return snapshot, nil
}

// AppendLog appends one line to a job's bounded log, persists the index, and
// raises a log notification carrying just the new line.
func (s *Store) AppendLog(id, line string) (Job, error) {
	s.mu.Lock()
	var target *Job
	for _, job := range s.jobs {
		if job.ID == id {
			target = job
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "append-log", fmt.Sprintf("job %s not found", id), nil)
	}
	target.AppendLog(line)
	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return Job{}, err
	}
	snapshot := target.Clone()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.JobLog(id, line)
	}
	return snapshot, nil
}

// Delete removes a job from the index.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	idx := -1
	for i, job := range s.jobs {
		if job.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return services.Wrap(services.ErrNotFound, "jobs", "delete", fmt.Sprintf("job %s not found", id), nil)
	}
	prev := s.jobs
	next := make([]*Job, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.jobs = next
	if err := s.persistLocked(); err != nil {
		s.jobs = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return nil
}
