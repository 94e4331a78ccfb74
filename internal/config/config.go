package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for daemon state and scratch space.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Whisper contains transcription engine settings.
type Whisper struct {
	ModelSize string `toml:"model_size"`
	Language  string `toml:"language"`
}

// Summary contains configuration for transcript summarization via Ollama.
type Summary struct {
	Enabled        bool   `toml:"enabled"`
	Auto           bool   `toml:"auto"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Prompt         string `toml:"prompt"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Inbox contains configuration for the drop-directory watcher.
type Inbox struct {
	Enabled       bool   `toml:"enabled"`
	Dir           string `toml:"dir"`
	SettleSeconds int    `toml:"settle_seconds"`
}

// Artifacts contains configuration for binary and model downloads.
type Artifacts struct {
	DownloadTimeout int `toml:"download_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Murmur.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and scratch directories
//   - Whisper: transcription model size and language
//   - Summary: Ollama endpoint and prompt for transcript summaries
//   - Inbox: drop-directory watching for automatic job submission
//   - Artifacts: download timeouts for managed binaries and models
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Whisper   Whisper   `toml:"whisper"`
	Summary   Summary   `toml:"summary"`
	Inbox     Inbox     `toml:"inbox"`
	Artifacts Artifacts `toml:"artifacts"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/murmur/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/murmur/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("murmur.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The inbox directory is created on a best-effort basis so the daemon can run
// when the watched location is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.StateDir,
		c.Paths.LogDir,
		c.Paths.WorkDir,
		c.JobsDir(),
		c.ModelsDir(),
		c.WhisperBinDir(),
		c.FFmpegBinDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Inbox.Enabled && strings.TrimSpace(c.Inbox.Dir) != "" {
		// Best-effort to avoid failing config load when the inbox lives on
		// storage that is offline.
		_ = os.MkdirAll(c.Inbox.Dir, 0o755)
	}
	return nil
}

// JobsDir returns the directory holding the persisted job index.
func (c *Config) JobsDir() string {
	return filepath.Join(c.Paths.StateDir, "jobs")
}

// IndexPath returns the path of the persisted job index document.
func (c *Config) IndexPath() string {
	return filepath.Join(c.JobsDir(), "index.json")
}

// ModelsDir returns the directory holding downloaded whisper models.
func (c *Config) ModelsDir() string {
	return filepath.Join(c.Paths.StateDir, "models")
}

// WhisperBinDir returns the managed install location for the whisper binary.
func (c *Config) WhisperBinDir() string {
	return filepath.Join(c.Paths.StateDir, "whisper", "bin")
}

// FFmpegBinDir returns the managed install location for ffmpeg and ffprobe.
func (c *Config) FFmpegBinDir() string {
	return filepath.Join(c.Paths.StateDir, "ffmpeg", "bin")
}

// SocketPath returns the Unix socket path used by the daemon RPC server.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "murmur.sock")
}

// LockPath returns the daemon lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "murmur.lock")
}

// PIDPath returns the daemon pid file path.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "murmur.pid")
}

// LogFilePath returns the daemon log file path.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "murmur.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
