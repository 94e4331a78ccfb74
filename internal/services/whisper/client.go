// Package whisper drives the external whisper.cpp speech engine and locates
// the transcript artifacts it emits.
package whisper

import (
	"context"
	"os"
	"strings"

	"murmur/internal/services"
	"murmur/internal/subprocess"
)

// Request describes one transcription run.
type Request struct {
	Binary    string
	ModelPath string
	AudioPath string
	// OutputBase is the path prefix the engine appends .txt/.json/.srt to.
	OutputBase string
	Language   string
}

// Outputs holds the artifact paths derived from a request's output base.
type Outputs struct {
	TranscriptPath string
	SegmentsPath   string
	SubtitlePath   string
}

// OutputsFor derives the expected artifact locations for a request.
func OutputsFor(outputBase string) Outputs {
	return Outputs{
		TranscriptPath: outputBase + ".txt",
		SegmentsPath:   outputBase + ".json",
		SubtitlePath:   outputBase + ".srt",
	}
}

// Exist reports whether the transcript and segment files were actually
// written. The subtitle file is optional; some engine builds skip it.
func (o Outputs) Exist() bool {
	return fileExists(o.TranscriptPath) && fileExists(o.SegmentsPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Transcribe runs the speech engine over a prepared WAV file. Stdout lines
// carry the engine's self-reported progress percentage; both streams are
// forwarded to the callbacks as they arrive. A successful exit does not
// guarantee output files exist; callers check Outputs.Exist.
func Transcribe(ctx context.Context, req Request, onStdout, onStderr func(string)) error {
	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-oj",
		"-osrt",
		"-otxt",
		"-of", req.OutputBase,
		"-pp",
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	err := subprocess.Run(ctx, subprocess.Options{
		Binary:       req.Binary,
		Args:         args,
		OnStdoutLine: onStdout,
		OnStderrLine: onStderr,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "whisper", "transcribe", req.AudioPath, err)
	}
	return nil
}
