package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"murmur/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Inbox.Dir = filepath.Join(base, "inbox")
	cfgVal.Inbox.SettleSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithModelSize sets the whisper model size on the test config.
func WithModelSize(size string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Whisper.ModelSize = size
	}
}

// WithSummary enables summarization, optionally with automatic dispatch
// after each completed job.
func WithSummary(auto bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Summary.Enabled = true
		b.cfg.Summary.Auto = auto
	}
}

// WithSummaryBaseURL points summarization at a test server.
func WithSummaryBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Summary.Enabled = true
		b.cfg.Summary.BaseURL = url
	}
}

// WithInbox enables the drop-directory watcher on the test config.
func WithInbox() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inbox.Enabled = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default murmur external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "whisper-cli"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
