package events

import (
	"time"

	"murmur/internal/jobs"
)

// Type discriminates the event payload.
type Type string

const (
	// TypeJobUpdated carries a full job snapshot after any mutation.
	TypeJobUpdated Type = "job:updated"
	// TypeJobLog carries a single appended log line.
	TypeJobLog Type = "job:log"
)

// Event is one sequenced notification published through the Hub.
type Event struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Type      Type      `json:"type"`
	Job       *jobs.Job `json:"job,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	Line      string    `json:"line,omitempty"`
}

// Publisher adapts a Hub to the job store's notification contract.
type Publisher struct {
	hub *Hub
}

// NewPublisher wraps hub so it can observe store mutations.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// JobUpdated publishes a full-snapshot update event.
func (p *Publisher) JobUpdated(job jobs.Job) {
	if p == nil || p.hub == nil {
		return
	}
	snapshot := job.Clone()
	p.hub.Publish(Event{Type: TypeJobUpdated, Job: &snapshot, JobID: job.ID})
}

// JobLog publishes an incremental log line event.
func (p *Publisher) JobLog(id, line string) {
	if p == nil || p.hub == nil {
		return
	}
	p.hub.Publish(Event{Type: TypeJobLog, JobID: id, Line: line})
}

var _ jobs.Notifier = (*Publisher)(nil)
