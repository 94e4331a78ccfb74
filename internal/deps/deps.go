package deps

import (
	"errors"
	"fmt"

	"murmur/internal/config"
)

// Status reports the availability of one external dependency for status
// output. Detail carries the failure reason when unavailable.
type Status struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Check evaluates all three pipeline dependencies against the current
// configuration and reports their availability. Probe failures never return
// an error; they are folded into the per-dependency detail.
func Check(cfg *config.Config) []Status {
	resolver := NewResolver(cfg)
	results := make([]Status, 0, 3)

	ffmpegStatus := Status{Name: "FFmpeg"}
	if path, err := resolver.FFmpeg(); err != nil {
		ffmpegStatus.Detail = summarize(err)
	} else {
		ffmpegStatus.Path = path
		ffmpegStatus.Available = true
	}
	results = append(results, ffmpegStatus)

	whisperStatus := Status{Name: "Whisper"}
	modelStatus := Status{Name: fmt.Sprintf("Model (%s)", cfg.Whisper.ModelSize)}
	if bin, model, err := resolver.Whisper(cfg.Whisper.ModelSize); err != nil {
		detail := summarize(err)
		whisperStatus.Detail = detail
		modelStatus.Detail = detail
	} else {
		whisperStatus.Path = bin
		whisperStatus.Available = true
		modelStatus.Path = model
		modelStatus.Available = true
	}
	results = append(results, whisperStatus, modelStatus)

	return results
}

func summarize(err error) string {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("%s not installed (run `murmur artifacts fetch`)", notFound.What)
	}
	return err.Error()
}
