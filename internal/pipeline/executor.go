package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"murmur/internal/config"
	"murmur/internal/deps"
	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/services/ffmpeg"
	"murmur/internal/services/ollama"
	"murmur/internal/services/whisper"
	"murmur/internal/subprocess"
	"murmur/internal/transcribe"
)

// Stage progress checkpoints. Transcription progress from the engine's
// percent output is mapped linearly into the transcribe window.
const (
	progressConvert        = 0.10
	progressTranscribeBase = 0.30
	progressTranscribeSpan = 0.60
	progressDone           = 1.0
)

// Executor runs jobs for the workflow manager. The stage functions are
// struct fields so tests can substitute them without spawning processes.
type Executor struct {
	cfg    *config.Config
	store  *jobs.Store
	logger *slog.Logger

	resolve    func(modelSize string) (deps.Resolved, error)
	convert    func(ctx context.Context, ffmpegPath, source, dest string, onLine func(string)) error
	transcribe func(ctx context.Context, req whisper.Request, onStdout, onStderr func(string)) error
	generate   func(ctx context.Context, cfg ollama.Config, prompt string) (string, error)

	tasks sync.WaitGroup
}

// NewExecutor wires the executor to the real binaries and services.
func NewExecutor(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	resolver := deps.NewResolver(cfg)
	return &Executor{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		resolve: resolver.Resolve,
		convert: func(ctx context.Context, ffmpegPath, source, dest string, onLine func(string)) error {
			return ffmpeg.NewClient(ffmpegPath).ConvertToWAV(ctx, source, dest, onLine)
		},
		transcribe: whisper.Transcribe,
		generate: func(ctx context.Context, cfg ollama.Config, prompt string) (string, error) {
			return ollama.NewClient(cfg).Generate(ctx, prompt)
		},
	}
}

// Wait blocks until detached summarization tasks finish. Called on daemon
// shutdown.
func (e *Executor) Wait() {
	e.tasks.Wait()
}

// Execute drives one job to a terminal state. Stage failures are recorded
// into the job; the returned error covers store-level problems only.
func (e *Executor) Execute(ctx context.Context, jobID string) error {
	// Config changes during a run must not affect an in-flight job.
	snapshot := *e.cfg

	job, err := e.store.Get(jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}

	logger := e.logger.With(logging.String(logging.FieldJobID, jobID))
	logger.Info("job started", logging.String("filename", job.Filename))

	if _, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SetStage(jobs.StageConvert)
		j.SetProgress(progressConvert)
	}); err != nil {
		return err
	}
	e.log(jobID, "Worker started.")

	resolved, err := e.resolve(snapshot.Whisper.ModelSize)
	if err != nil {
		return e.fail(jobID, logger, err.Error())
	}

	jobDir := filepath.Dir(job.AudioPath)
	wavPath := filepath.Join(jobDir, "audio.wav")
	if _, err := os.Stat(wavPath); err != nil {
		e.log(jobID, "Converting audio to 16k mono WAV...")
		if err := e.convert(ctx, resolved.FFmpegPath, job.AudioPath, wavPath, e.logLine(jobID)); err != nil {
			return e.fail(jobID, logger, fmt.Sprintf("audio conversion failed: %v", err))
		}
	}

	if e.cancelled(jobID) {
		logger.Info("job cancelled before transcription")
		return nil
	}

	if _, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SetStage(jobs.StageTranscribe)
		j.SetProgress(progressTranscribeBase)
	}); err != nil {
		return err
	}
	e.log(jobID, "Running whisper.cpp...")

	outputBase := filepath.Join(jobDir, "whisper")
	req := whisper.Request{
		Binary:     resolved.WhisperPath,
		ModelPath:  resolved.ModelPath,
		AudioPath:  wavPath,
		OutputBase: outputBase,
		Language:   snapshot.Whisper.Language,
	}
	onStdout := func(line string) {
		if pct, ok := subprocess.ParseTrailingPercent(line); ok {
			mapped := progressTranscribeBase + (pct/100)*progressTranscribeSpan
			e.store.Mutate(jobID, func(j *jobs.Job) {
				if j.Status == jobs.StatusCancelled {
					return
				}
				j.SetStage(jobs.StageTranscribe)
				j.SetProgress(mapped)
			})
		}
		e.log(jobID, line)
	}
	if err := e.transcribe(ctx, req, onStdout, e.logLine(jobID)); err != nil {
		return e.fail(jobID, logger, fmt.Sprintf("transcription failed: %v", err))
	}

	if e.cancelled(jobID) {
		logger.Info("job cancelled before completion")
		return nil
	}

	outputs := whisper.OutputsFor(outputBase)
	if !outputs.Exist() {
		return e.completeWithStub(jobID, logger, jobDir)
	}

	preview := transcribe.ReadyPreview
	if text, err := os.ReadFile(outputs.TranscriptPath); err == nil {
		preview = transcribe.RenderPreview(job.DisplayTitle, string(text))
	}

	// Some engine builds skip the subtitle file even with -osrt.
	if _, err := os.Stat(outputs.SubtitlePath); err != nil {
		if segments, err := transcribe.LoadSegments(outputs.SegmentsPath); err == nil {
			if err := os.WriteFile(outputs.SubtitlePath, []byte(transcribe.RenderSRT(segments)), 0o644); err != nil {
				e.log(jobID, fmt.Sprintf("Subtitle render failed: %v", err))
			}
		}
	}

	if _, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SetDone()
		j.SetProgress(progressDone)
		j.TranscriptPath = outputs.TranscriptPath
		j.SegmentsPath = outputs.SegmentsPath
		j.SubtitlePath = outputs.SubtitlePath
		j.PreviewMD = preview
		if snapshot.Summary.Enabled {
			j.SummaryStatus = jobs.SummaryNotStarted
		} else {
			j.SummaryStatus = jobs.SummarySkipped
		}
	}); err != nil {
		return err
	}
	e.log(jobID, "Whisper finished.")
	logger.Info("job finished")

	if snapshot.Summary.Enabled && snapshot.Summary.Auto {
		e.log(jobID, "Summarization queued.")
		e.tasks.Add(1)
		go func() {
			defer e.tasks.Done()
			// Summarization outlives the job context; daemon shutdown
			// waits for it through Wait.
			if _, err := e.summarize(context.Background(), snapshot, jobID, false); err != nil {
				logger.Warn("auto summarization failed", logging.Error(err))
			}
		}()
	} else {
		e.log(jobID, "Summarization skipped.")
	}
	return nil
}

// completeWithStub closes out a job whose engine exited cleanly without
// producing outputs. Placeholder artifacts keep the job usable downstream.
func (e *Executor) completeWithStub(jobID string, logger *slog.Logger, jobDir string) error {
	e.log(jobID, "Whisper output missing; falling back to stub artifacts.")
	paths, err := transcribe.WriteStubArtifacts(jobDir)
	if err != nil {
		return e.fail(jobID, logger, fmt.Sprintf("stub artifacts failed: %v", err))
	}
	if _, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SetDone()
		j.SetProgress(progressDone)
		j.TranscriptPath = paths.Transcript
		j.SegmentsPath = paths.Segments
		j.SubtitlePath = paths.Subtitle
		j.PreviewMD = transcribe.StubPreview
		j.SummaryStatus = jobs.SummarySkipped
	}); err != nil {
		return err
	}
	e.log(jobID, "Worker finished (stub).")
	logger.Info("job finished with stub artifacts")
	return nil
}

// cancelled reports whether the job was cancelled while a stage was running.
// The terminal status set by the cancel request is left untouched.
func (e *Executor) cancelled(jobID string) bool {
	job, err := e.store.Get(jobID)
	if err != nil {
		return false
	}
	return job.Status == jobs.StatusCancelled
}

func (e *Executor) fail(jobID string, logger *slog.Logger, message string) error {
	if _, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SetFailed(message)
		j.AppendLog(message)
	}); err != nil {
		return err
	}
	logger.Warn("job failed", logging.String("reason", message))
	return nil
}

func (e *Executor) log(jobID, line string) {
	e.store.AppendLog(jobID, line)
}

func (e *Executor) logLine(jobID string) func(string) {
	return func(line string) {
		e.store.AppendLog(jobID, line)
	}
}
