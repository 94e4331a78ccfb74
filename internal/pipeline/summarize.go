package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"murmur/internal/config"
	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/services"
	"murmur/internal/services/ollama"
)

// Summarize runs the summarization pass for a finished job using the current
// configuration. It blocks until the result is recorded; callers wanting
// fire-and-forget behavior wrap it in their own goroutine.
func (e *Executor) Summarize(ctx context.Context, jobID string, force bool) (jobs.Job, error) {
	return e.summarize(ctx, *e.cfg, jobID, force)
}

func (e *Executor) summarize(ctx context.Context, snapshot config.Config, jobID string, force bool) (jobs.Job, error) {
	job, err := e.store.Get(jobID)
	if err != nil {
		return jobs.Job{}, err
	}
	logger := e.logger.With(logging.String(logging.FieldJobID, jobID))

	if !snapshot.Summary.Enabled {
		return e.store.Mutate(jobID, func(j *jobs.Job) {
			j.SummaryStatus = jobs.SummarySkipped
		})
	}

	// Guard against duplicate runs: an in-flight pass wins, and a finished
	// result is reused unless the caller forces a re-run.
	if job.SummaryStatus == jobs.SummaryRunning {
		return job, nil
	}
	if !force && job.SummaryStatus == jobs.SummaryDone && strings.TrimSpace(job.SummaryMD) != "" {
		return job, nil
	}

	if job.TranscriptPath == "" {
		return jobs.Job{}, services.Wrap(services.ErrConflict, "pipeline", "summarize", "job has no transcript yet", nil)
	}

	if _, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SummaryStatus = jobs.SummaryRunning
		j.SummaryModel = snapshot.Summary.Model
		j.SummaryError = ""
	}); err != nil {
		return jobs.Job{}, err
	}
	e.log(jobID, "Summarization started.")

	summary, err := e.runSummary(ctx, snapshot, job)
	if err != nil {
		failed, storeErr := e.store.Mutate(jobID, func(j *jobs.Job) {
			j.SummaryStatus = jobs.SummaryError
			j.SummaryError = err.Error()
		})
		if storeErr != nil {
			return jobs.Job{}, storeErr
		}
		e.log(jobID, "Summarization failed: "+err.Error())
		logger.Warn("summarization failed", logging.Error(err))
		return failed, err
	}

	summaryPath := filepath.Join(filepath.Dir(job.AudioPath), "summary.md")
	updated, err := e.store.Mutate(jobID, func(j *jobs.Job) {
		j.SummaryStatus = jobs.SummaryDone
		j.SummaryMD = summary
		j.SummaryError = ""
		j.SummaryPath = summaryPath
		j.PreviewMD = summary
	})
	if err != nil {
		return jobs.Job{}, err
	}
	e.log(jobID, "Summarization finished.")
	logger.Info("summarization finished")
	return updated, nil
}

func (e *Executor) runSummary(ctx context.Context, snapshot config.Config, job jobs.Job) (string, error) {
	data, err := os.ReadFile(job.TranscriptPath)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "pipeline", "summarize", "read transcript", err)
	}
	prompt := ollama.BuildPrompt(snapshot.Summary.Prompt, string(data))

	summary, err := e.generate(ctx, ollama.Config{
		BaseURL:        snapshot.Summary.BaseURL,
		Model:          snapshot.Summary.Model,
		TimeoutSeconds: snapshot.Summary.TimeoutSeconds,
	}, prompt)
	if err != nil {
		return "", err
	}

	summaryPath := filepath.Join(filepath.Dir(job.AudioPath), "summary.md")
	if err := os.WriteFile(summaryPath, []byte(summary+"\n"), 0o644); err != nil {
		return "", services.Wrap(services.ErrIO, "pipeline", "summarize", "write summary sidecar", err)
	}
	return summary, nil
}
