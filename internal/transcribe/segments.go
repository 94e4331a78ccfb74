package transcribe

import (
	"encoding/json"
	"os"
	"strings"

	"murmur/internal/services"
)

// Segment is one normalized transcript span, with start and end in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Upstream whisper.cpp builds have emitted three different JSON shapes over
// time; rawSegment covers the field variants of the first two.
type rawSegment struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	// t0/t1 are centiseconds in older builds.
	T0 *float64 `json:"t0"`
	T1 *float64 `json:"t1"`
}

type rawTranscriptionEntry struct {
	Text    string `json:"text"`
	Offsets struct {
		// from/to are milliseconds.
		From float64 `json:"from"`
		To   float64 `json:"to"`
	} `json:"offsets"`
}

// LoadSegments reads a transcript JSON file and normalizes its segments.
func LoadSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "transcribe", "segments", "read transcript json", err)
	}
	return ParseSegments(data)
}

// ParseSegments normalizes any of the three known transcript JSON shapes
// into {start, end, text} triples in seconds:
//
//   - a flat array of {start, end, text} in seconds
//   - {"segments": [...]} with start/end in seconds or t0/t1 in centiseconds
//   - {"transcription": [{"offsets": {"from", "to"}}]} in milliseconds
func ParseSegments(data []byte) ([]Segment, error) {
	var flat []Segment
	if err := json.Unmarshal(data, &flat); err == nil {
		return compact(flat), nil
	}

	var doc struct {
		Segments      []rawSegment            `json:"segments"`
		Transcription []rawTranscriptionEntry `json:"transcription"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrFormat, "transcribe", "segments", "invalid transcript json", err)
	}

	if doc.Segments != nil {
		out := make([]Segment, 0, len(doc.Segments))
		for _, raw := range doc.Segments {
			start, end := rawTimes(raw)
			out = append(out, Segment{Start: start, End: end, Text: strings.TrimSpace(raw.Text)})
		}
		return compact(out), nil
	}

	if doc.Transcription != nil {
		out := make([]Segment, 0, len(doc.Transcription))
		for _, entry := range doc.Transcription {
			start := entry.Offsets.From / 1000
			end := entry.Offsets.To / 1000
			if end < start {
				end = start
			}
			out = append(out, Segment{Start: start, End: end, Text: strings.TrimSpace(entry.Text)})
		}
		return compact(out), nil
	}

	return nil, services.Wrap(services.ErrFormat, "transcribe", "segments", "segments not found in transcript json", nil)
}

func rawTimes(raw rawSegment) (float64, float64) {
	start := 0.0
	switch {
	case raw.Start != nil:
		start = *raw.Start
	case raw.T0 != nil:
		start = *raw.T0 / 100
	}
	end := start
	switch {
	case raw.End != nil:
		end = *raw.End
	case raw.T1 != nil:
		end = *raw.T1 / 100
	}
	if end < start {
		end = start
	}
	return start, end
}

func compact(segments []Segment) []Segment {
	out := segments[:0]
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// PlainText joins segment texts into a single transcript string.
func PlainText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
