package daemon

import (
	"os"
	"path/filepath"
	"strings"

	"murmur/internal/config"
	"murmur/internal/fileutil"
	"murmur/internal/jobs"
	"murmur/internal/logging"
	"murmur/internal/services"
)

// Submit copies the source audio into a per-job directory, persists the
// queued job, and hands it to the worker queue. The copy isolates the job
// from later changes to the original file.
func (d *Daemon) Submit(sourcePath string) (jobs.Job, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return jobs.Job{}, services.Wrap(services.ErrNotFound, "daemon", "submit", "audio file not found", err)
	}
	if info.IsDir() {
		return jobs.Job{}, services.Wrap(services.ErrFormat, "daemon", "submit", "path is a directory", nil)
	}

	job := jobs.NewJob(sourcePath)
	destPath := jobAudioPath(d.cfg, job.ID, sourcePath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return jobs.Job{}, services.Wrap(services.ErrIO, "daemon", "submit", "create job dir", err)
	}
	if err := fileutil.CopyFile(sourcePath, destPath); err != nil {
		return jobs.Job{}, services.Wrap(services.ErrIO, "daemon", "submit", "copy audio into job dir", err)
	}
	job.AudioPath = destPath
	job.AppendLog("Queued for processing.")

	inserted, err := d.store.Insert(job)
	if err != nil {
		return jobs.Job{}, err
	}
	if err := d.queue.Enqueue(inserted.ID); err != nil {
		return jobs.Job{}, err
	}
	d.logger.Info("job submitted",
		logging.String(logging.FieldJobID, inserted.ID),
		logging.String("filename", inserted.Filename))
	return inserted, nil
}

// jobAudioPath keeps the source extension so the transcoder can sniff the
// container, under a fixed name inside the job directory.
func jobAudioPath(cfg *config.Config, jobID, sourcePath string) string {
	name := "audio.original"
	if ext := strings.TrimPrefix(filepath.Ext(sourcePath), "."); ext != "" {
		name += "." + ext
	}
	return filepath.Join(cfg.JobsDir(), jobID, name)
}

// removeJobDir deletes the job's directory, but only when it actually lives
// under the managed jobs tree.
func removeJobDir(cfg *config.Config, job jobs.Job) {
	if job.AudioPath == "" {
		return
	}
	dir := filepath.Dir(job.AudioPath)
	rel, err := filepath.Rel(cfg.JobsDir(), dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	os.RemoveAll(dir)
}
