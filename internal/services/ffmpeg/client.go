// Package ffmpeg drives the external transcoder to normalize arbitrary
// audio into the mono 16 kHz WAV format the speech engine expects.
package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"murmur/internal/services"
	"murmur/internal/subprocess"
)

// Client wraps one resolved ffmpeg binary.
type Client struct {
	binary string
}

// NewClient builds a client around the given transcoder binary path.
func NewClient(binary string) *Client {
	return &Client{binary: binary}
}

// Binary returns the wrapped binary path.
func (c *Client) Binary() string {
	return c.binary
}

// ConvertToWAV transcodes the source file into a mono 16 kHz PCM WAV at
// dest, streaming tool output to onLine as it arrives. ffmpeg writes its
// progress to stderr, so both streams feed the same callback.
func (c *Client) ConvertToWAV(ctx context.Context, source, dest string, onLine func(string)) error {
	if strings.TrimSpace(source) == "" {
		return services.Wrap(services.ErrIO, "ffmpeg", "convert", "source path required", nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-i", source,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dest,
	}
	err := subprocess.Run(ctx, subprocess.Options{
		Binary:       c.binary,
		Args:         args,
		OnStdoutLine: onLine,
		OnStderrLine: onLine,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "convert", fmt.Sprintf("transcode %s", source), err)
	}
	return nil
}

// ExtractClip writes the [startSec, endSec] range of the source audio as a
// mono 16 kHz WAV at dest. Used for segment playback in the UI.
func (c *Client) ExtractClip(ctx context.Context, source, dest string, startSec, endSec float64, onLine func(string)) error {
	if endSec <= startSec {
		return services.Wrap(services.ErrIO, "ffmpeg", "clip", fmt.Sprintf("invalid range %.2f..%.2f", startSec, endSec), nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-i", source,
		"-ss", fmt.Sprintf("%.3f", startSec),
		"-to", fmt.Sprintf("%.3f", endSec),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dest,
	}
	err := subprocess.Run(ctx, subprocess.Options{
		Binary:       c.binary,
		Args:         args,
		OnStdoutLine: onLine,
		OnStderrLine: onLine,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "clip", fmt.Sprintf("extract %s", source), err)
	}
	return nil
}
