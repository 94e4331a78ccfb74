package artifacts

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip file: %v", err)
	}
	return path
}

func TestInstallWhisperFromZipFindsNestedEntry(t *testing.T) {
	path := writeZip(t, map[string]string{
		"whisper.cpp-1.8.0/README.md":    "docs",
		"whisper.cpp-1.8.0/bin/main":     "binary-content",
		"whisper.cpp-1.8.0/lib/libw.dll": "lib",
	})
	dest := filepath.Join(t.TempDir(), "whisper-cli")

	if err := installWhisperFromZip(path, dest); err != nil {
		t.Fatalf("installWhisperFromZip: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	if string(data) != "binary-content" {
		t.Fatalf("installed content mismatch: %q", data)
	}
	info, _ := os.Stat(dest)
	if info.Mode()&0o111 == 0 {
		t.Fatal("installed binary should be executable")
	}
}

func TestInstallWhisperFromZipIgnoresNameFragments(t *testing.T) {
	// "domain" ends in "main" but is not a whisper binary entry.
	path := writeZip(t, map[string]string{"tools/domain": "not-it"})
	dest := filepath.Join(t.TempDir(), "whisper-cli")

	if err := installWhisperFromZip(path, dest); err == nil {
		t.Fatal("expected error when no whisper entry is present")
	}
}

func TestInstallFFmpegFromZipRequiresBothBinaries(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")

	missing := writeZip(t, map[string]string{"ffmpeg-7.0/ffmpeg": "ffmpeg-bin"})
	if err := installFFmpegFromZip(missing, binDir); err == nil {
		t.Fatal("expected error when ffprobe is missing")
	}

	complete := writeZip(t, map[string]string{
		"ffmpeg-7.0/ffmpeg":  "ffmpeg-bin",
		"ffmpeg-7.0/ffprobe": "ffprobe-bin",
	})
	if err := installFFmpegFromZip(complete, binDir); err != nil {
		t.Fatalf("installFFmpegFromZip: %v", err)
	}
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		info, err := os.Stat(filepath.Join(binDir, name))
		if err != nil {
			t.Fatalf("%s missing after install: %v", name, err)
		}
		if info.Mode()&0o111 == 0 {
			t.Fatalf("%s should be executable", name)
		}
	}
}

func TestInstallWhisperFromZipRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a.zip")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := installWhisperFromZip(path, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatal("expected error for invalid archive")
	}
}
