package ipc

import (
	"murmur/internal/artifacts"
	"murmur/internal/daemon"
	"murmur/internal/events"
	"murmur/internal/jobs"
	"murmur/internal/transcribe"
)

// Job mirrors the store's job record for IPC callers.
type Job = jobs.Job

// ArtifactStatus mirrors the artifact manager's download status.
type ArtifactStatus = artifacts.Status

// Event mirrors the event hub's sequenced notification.
type Event = events.Event

// DaemonStatus mirrors the daemon's status snapshot.
type DaemonStatus = daemon.Status

// Segment mirrors one normalized transcript span.
type Segment = transcribe.Segment

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse identifies the responding daemon process.
type PingResponse struct {
	Pong      bool   `json:"pong"`
	PID       int    `json:"pid"`
	SessionID string `json:"session_id"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon status snapshot.
type StatusResponse struct {
	Status DaemonStatus `json:"status"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse indicates shutdown was initiated.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}

// SubmitRequest enqueues an audio file for processing.
type SubmitRequest struct {
	Path string `json:"path"`
}

// SubmitResponse contains the newly created job.
type SubmitResponse struct {
	Job Job `json:"job"`
}

// ListJobsRequest filters the job listing by status names.
type ListJobsRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// ListJobsResponse contains jobs newest first.
type ListJobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// GetJobRequest fetches a single job by id.
type GetJobRequest struct {
	ID string `json:"id"`
}

// GetJobResponse contains a single job.
type GetJobResponse struct {
	Job Job `json:"job"`
}

// CancelJobRequest requests cooperative cancellation of a job.
type CancelJobRequest struct {
	ID string `json:"id"`
}

// CancelJobResponse contains the job after cancellation was recorded.
type CancelJobResponse struct {
	Job Job `json:"job"`
}

// DeleteJobRequest removes a job and its working directory.
type DeleteJobRequest struct {
	ID string `json:"id"`
}

// DeleteJobResponse indicates the job was removed.
type DeleteJobResponse struct {
	Deleted bool `json:"deleted"`
}

// JobLogRequest fetches log lines for a job. Tail limits the result to
// the last N lines when positive.
type JobLogRequest struct {
	ID   string `json:"id"`
	Tail int    `json:"tail,omitempty"`
}

// JobLogResponse contains job log lines oldest first.
type JobLogResponse struct {
	Lines []string `json:"lines"`
}

// GetSegmentsRequest fetches a job's normalized transcript segments.
type GetSegmentsRequest struct {
	ID string `json:"id"`
}

// GetSegmentsResponse lists segments in transcript order, times in seconds.
type GetSegmentsResponse struct {
	Segments []Segment `json:"segments"`
}

// GetClipRequest asks for a WAV clip of the job audio. Times are seconds
// from the start of the recording.
type GetClipRequest struct {
	ID       string  `json:"id"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// GetClipResponse names the extracted clip file, or the full audio file
// when no transcoder is available.
type GetClipResponse struct {
	Path string `json:"path"`
}

// SummarizeRequest triggers summarization for a finished job.
type SummarizeRequest struct {
	ID    string `json:"id"`
	Force bool   `json:"force,omitempty"`
}

// SummarizeResponse contains the job after the summarization attempt.
type SummarizeResponse struct {
	Job Job `json:"job"`
}

// ArtifactStatusesRequest fetches all artifact download statuses.
type ArtifactStatusesRequest struct{}

// ArtifactStatusesResponse lists artifact statuses, binaries first.
type ArtifactStatusesResponse struct {
	Statuses []ArtifactStatus `json:"statuses"`
}

// StartArtifactDownloadRequest begins a background artifact download.
// SourceURL overrides the default release URL when set.
type StartArtifactDownloadRequest struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url,omitempty"`
}

// StartArtifactDownloadResponse contains the status after the request.
type StartArtifactDownloadResponse struct {
	Status ArtifactStatus `json:"status"`
}

// FetchEventsRequest fetches events after a sequence number. When
// WaitMillis is positive the call blocks up to that long for new
// events before returning an empty batch.
type FetchEventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit,omitempty"`
	WaitMillis int    `json:"wait_millis,omitempty"`
}

// FetchEventsResponse contains events and the next cursor position.
type FetchEventsResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

// TailEventsRequest fetches the most recent events.
type TailEventsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// TailEventsResponse contains recent events and the next cursor.
type TailEventsResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}
