package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Stage identifies the pipeline phase a job is in. Terminal statuses are
// mirrored into the stage so a single field tells the whole story in
// listings.
type Stage string

const (
	StageImport     Stage = "import"
	StageConvert    Stage = "convert"
	StageTranscribe Stage = "transcribe"
	StageDone       Stage = "done"
	StageError      Stage = "error"
	StageCancelled  Stage = "cancelled"
)

// SummaryStatus tracks the detached summarization task for a job.
type SummaryStatus string

const (
	SummaryNotStarted SummaryStatus = "not_started"
	SummaryRunning    SummaryStatus = "running"
	SummaryDone       SummaryStatus = "done"
	SummaryError      SummaryStatus = "error"
	SummarySkipped    SummaryStatus = "skipped"
)

// LogCapacity bounds the per-job log buffer; the oldest lines drop first.
const LogCapacity = 2000

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusDone,
	StatusError,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents one unit of pipeline work from submission to terminal state.
type Job struct {
	ID             string        `json:"id"`
	Filename       string        `json:"filename"`
	DisplayTitle   string        `json:"display_title,omitempty"`
	Status         Status        `json:"status"`
	Stage          Stage         `json:"stage"`
	Progress       float64       `json:"progress"`
	Log            []string      `json:"log"`
	CreatedAt      time.Time     `json:"created_at"`
	AudioPath      string        `json:"audio_path,omitempty"`
	TranscriptPath string        `json:"transcript_path,omitempty"`
	SegmentsPath   string        `json:"segments_path,omitempty"`
	SubtitlePath   string        `json:"subtitle_path,omitempty"`
	PreviewMD      string        `json:"preview_md,omitempty"`
	SummaryStatus  SummaryStatus `json:"summary_status"`
	SummaryModel   string        `json:"summary_model,omitempty"`
	SummaryError   string        `json:"summary_error,omitempty"`
	SummaryMD      string        `json:"summary_md,omitempty"`
	SummaryPath    string        `json:"summary_path,omitempty"`
	Exported       bool          `json:"exported"`
	ErrorMessage   string        `json:"error,omitempty"`
}

var idMu sync.Mutex
var lastIDMicros int64

// NewJobID returns a time+process derived identifier. The microsecond clock
// is forced forward under a lock so two submissions in the same tick cannot
// collide.
func NewJobID() string {
	idMu.Lock()
	micros := time.Now().UnixMicro()
	if micros <= lastIDMicros {
		micros = lastIDMicros + 1
	}
	lastIDMicros = micros
	idMu.Unlock()
	return fmt.Sprintf("job_%d_%d", micros, os.Getpid())
}

// NewJob builds a queued job for the given source audio file.
func NewJob(audioPath string) *Job {
	filename := filepath.Base(audioPath)
	return &Job{
		ID:            NewJobID(),
		Filename:      filename,
		DisplayTitle:  DeriveDisplayTitle(filename),
		Status:        StatusQueued,
		Stage:         StageImport,
		Progress:      0,
		Log:           []string{},
		CreatedAt:     time.Now().UTC(),
		AudioPath:     audioPath,
		SummaryStatus: SummaryNotStarted,
	}
}

// DeriveDisplayTitle turns a filename into a human-facing title: extension
// stripped, separators collapsed to spaces, title-cased.
func DeriveDisplayTitle(filename string) string {
	if filename == "" {
		return "Untitled Recording"
	}
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Recording"
	}
	return cases.Title(language.Und).String(title)
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further pipeline work.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the job has reached a terminal status.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// AppendLog appends a line to the bounded log buffer, dropping the oldest
// lines once LogCapacity is exceeded.
func (j *Job) AppendLog(line string) {
	j.Log = append(j.Log, line)
	if excess := len(j.Log) - LogCapacity; excess > 0 {
		j.Log = append(j.Log[:0], j.Log[excess:]...)
	}
}

// SetProgress clamps progress into [0, 1] and ignores decreases, keeping the
// reported value monotonic within a pipeline run.
func (j *Job) SetProgress(progress float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	if progress < j.Progress {
		return
	}
	j.Progress = progress
}

// SetStage moves the job to the given running stage.
func (j *Job) SetStage(stage Stage) {
	j.Status = StatusRunning
	j.Stage = stage
}

// SetDone marks the job complete with full progress.
func (j *Job) SetDone() {
	j.Status = StatusDone
	j.Stage = StageDone
	j.Progress = 1
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusError
	j.Stage = StageError
	j.ErrorMessage = message
}

// SetCancelled marks the job as cancelled by explicit request.
func (j *Job) SetCancelled() {
	j.Status = StatusCancelled
	j.Stage = StageCancelled
}

// Clone returns a deep copy safe to hand outside the store.
func (j Job) Clone() Job {
	cp := j
	if j.Log != nil {
		cp.Log = make([]string, len(j.Log))
		copy(cp.Log, j.Log)
	}
	return cp
}
