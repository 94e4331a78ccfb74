package daemon

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"murmur/internal/services"
	"murmur/internal/transcribe"
)

// Segments loads and normalizes the transcript segments for a job. Jobs
// that have not produced a segments file yet report an empty slice.
func (d *Daemon) Segments(id string) ([]transcribe.Segment, error) {
	job, err := d.store.Get(id)
	if err != nil {
		return nil, err
	}
	if job.SegmentsPath == "" {
		return []transcribe.Segment{}, nil
	}
	return transcribe.LoadSegments(job.SegmentsPath)
}

// Clip returns a WAV file covering [startSec, endSec] of the job's audio.
// The clip is extracted on first request and reused afterwards. When no
// transcoder binary can be resolved the full audio file is returned so
// playback still works.
func (d *Daemon) Clip(ctx context.Context, id string, startSec, endSec float64) (string, error) {
	job, err := d.store.Get(id)
	if err != nil {
		return "", err
	}
	if job.AudioPath == "" {
		return "", services.Wrap(services.ErrNotFound, "daemon", "clip",
			fmt.Sprintf("job %s has no audio file", id), nil)
	}
	if endSec <= startSec {
		return "", services.Wrap(services.ErrConflict, "daemon", "clip",
			fmt.Sprintf("invalid range %.2f..%.2f", startSec, endSec), nil)
	}

	clipsDir := filepath.Join(filepath.Dir(job.AudioPath), "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrIO, "daemon", "clip", "create clips dir", err)
	}
	dest := filepath.Join(clipsDir, clipFilename(startSec, endSec))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	ffmpegPath, err := d.resolveFFmpeg()
	if err != nil {
		d.store.AppendLog(id, fmt.Sprintf("Clip extraction unavailable: %v", err))
		return job.AudioPath, nil
	}
	if err := d.extractClip(ctx, ffmpegPath, job.AudioPath, dest, startSec, endSec); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func clipFilename(startSec, endSec float64) string {
	return fmt.Sprintf("clip_%d_%d.wav", clipMillis(startSec), clipMillis(endSec))
}

func clipMillis(sec float64) int64 {
	return int64(math.Round(math.Max(sec, 0) * 1000))
}
