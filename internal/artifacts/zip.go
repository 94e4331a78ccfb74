package artifacts

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"murmur/internal/services"
)

// Upstream whisper.cpp archives have shipped the binary under different
// names depending on release vintage.
var whisperEntryNames = []string{"whisper-cli", "whisper", "main"}

// installWhisperFromZip extracts the first whisper binary entry from the
// archive into destPath and marks it executable.
func installWhisperFromZip(zipPath, destPath string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return services.Wrap(services.ErrFormat, "artifacts", "install", "invalid zip archive", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if !matchesEntryName(entry.Name, whisperEntryNames) {
			continue
		}
		if err := extractEntry(entry, destPath); err != nil {
			return err
		}
		return os.Chmod(destPath, 0o755)
	}
	return services.Wrap(services.ErrFormat, "artifacts", "install", "whisper binary not found in zip", nil)
}

// installFFmpegFromZip extracts ffmpeg and ffprobe into binDir. Both entries
// must be present or the install fails as a whole.
func installFFmpegFromZip(zipPath, binDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return services.Wrap(services.ErrFormat, "artifacts", "install", "invalid zip archive", err)
	}
	defer reader.Close()

	var foundFFmpeg, foundFFprobe bool
	for _, entry := range reader.File {
		switch {
		case matchesEntryName(entry.Name, []string{"ffmpeg"}):
			if err := extractEntry(entry, filepath.Join(binDir, "ffmpeg")); err != nil {
				return err
			}
			foundFFmpeg = true
		case matchesEntryName(entry.Name, []string{"ffprobe"}):
			if err := extractEntry(entry, filepath.Join(binDir, "ffprobe")); err != nil {
				return err
			}
			foundFFprobe = true
		}
	}
	if !foundFFmpeg {
		return services.Wrap(services.ErrFormat, "artifacts", "install", "ffmpeg binary not found in zip", nil)
	}
	if !foundFFprobe {
		return services.Wrap(services.ErrFormat, "artifacts", "install", "ffprobe binary not found in zip", nil)
	}
	if err := os.Chmod(filepath.Join(binDir, "ffmpeg"), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "artifacts", "install", "mark ffmpeg executable", err)
	}
	if err := os.Chmod(filepath.Join(binDir, "ffprobe"), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "artifacts", "install", "mark ffprobe executable", err)
	}
	return nil
}

// matchesEntryName matches an archive entry against expected executable
// names, either as a bare entry or nested under any directory prefix.
func matchesEntryName(entryName string, names []string) bool {
	for _, name := range names {
		if entryName == name || strings.HasSuffix(entryName, "/"+name) {
			return true
		}
	}
	return false
}

func extractEntry(entry *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "artifacts", "install", "create install dir", err)
	}
	src, err := entry.Open()
	if err != nil {
		return services.Wrap(services.ErrFormat, "artifacts", "install", "open zip entry", err)
	}
	defer src.Close()
	dst, err := os.Create(destPath)
	if err != nil {
		return services.Wrap(services.ErrIO, "artifacts", "install", "create binary file", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return services.Wrap(services.ErrIO, "artifacts", "install", "extract binary", err)
	}
	return dst.Close()
}
