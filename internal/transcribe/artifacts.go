package transcribe

import (
	"os"
	"path/filepath"
	"strings"

	"murmur/internal/services"
)

// StubPreview is the preview marker used when the speech engine exited
// cleanly but wrote no output files; it distinguishes placeholder artifacts
// from real transcripts in listings.
const StubPreview = "Transcript unavailable (placeholder output)."

// ReadyPreview is the fallback preview for a completed transcript whose
// text could not be read back for rendering.
const ReadyPreview = "Transcript ready."

var stubSegments = []Segment{
	{Start: 0.0, End: 1.5, Text: "Placeholder segment one."},
	{Start: 1.6, End: 3.2, Text: "Placeholder segment two."},
}

// ArtifactPaths names the three transcript files for one job.
type ArtifactPaths struct {
	Transcript string
	Segments   string
	Subtitle   string
}

// WriteStubArtifacts emits the placeholder transcript/segments/subtitle
// triple into jobDir, used when the engine produced no usable output.
func WriteStubArtifacts(jobDir string) (ArtifactPaths, error) {
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return ArtifactPaths{}, services.Wrap(services.ErrIO, "transcribe", "stub", "create job dir", err)
	}
	paths := ArtifactPaths{
		Transcript: filepath.Join(jobDir, "transcript.txt"),
		Segments:   filepath.Join(jobDir, "segments.json"),
		Subtitle:   filepath.Join(jobDir, "transcript.srt"),
	}
	transcript := PlainText(stubSegments) + "\n"
	segments := `[{"start":0.0,"end":1.5,"text":"Placeholder segment one."},{"start":1.6,"end":3.2,"text":"Placeholder segment two."}]`

	if err := os.WriteFile(paths.Transcript, []byte(transcript), 0o644); err != nil {
		return ArtifactPaths{}, services.Wrap(services.ErrIO, "transcribe", "stub", "write transcript", err)
	}
	if err := os.WriteFile(paths.Segments, []byte(segments), 0o644); err != nil {
		return ArtifactPaths{}, services.Wrap(services.ErrIO, "transcribe", "stub", "write segments", err)
	}
	if err := os.WriteFile(paths.Subtitle, []byte(""), 0o644); err != nil {
		return ArtifactPaths{}, services.Wrap(services.ErrIO, "transcribe", "stub", "write subtitle", err)
	}
	return paths, nil
}

// RenderPreview builds the markdown preview shown next to a finished job.
func RenderPreview(title, transcript string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(transcript))
	b.WriteString("\n")
	return b.String()
}
