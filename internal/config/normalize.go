package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeSummary()
	if err := c.normalizeInbox(); err != nil {
		return err
	}
	c.normalizeArtifacts()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWhisper() {
	c.Whisper.ModelSize = strings.ToLower(strings.TrimSpace(c.Whisper.ModelSize))
	if c.Whisper.ModelSize == "" {
		c.Whisper.ModelSize = defaultModelSize
	}
	c.Whisper.Language = strings.ToLower(strings.TrimSpace(c.Whisper.Language))
	if c.Whisper.Language == "" {
		c.Whisper.Language = defaultLanguage
	}
}

func (c *Config) normalizeSummary() {
	// OLLAMA_HOST follows the ollama CLI convention and wins over the file
	// so a per-shell endpoint override works without editing config.
	if value, ok := os.LookupEnv("OLLAMA_HOST"); ok && strings.TrimSpace(value) != "" {
		c.Summary.BaseURL = strings.TrimSpace(value)
	}
	c.Summary.BaseURL = strings.TrimRight(strings.TrimSpace(c.Summary.BaseURL), "/")
	if c.Summary.BaseURL == "" {
		c.Summary.BaseURL = defaultSummaryBaseURL
	}
	if !strings.Contains(c.Summary.BaseURL, "://") {
		c.Summary.BaseURL = "http://" + c.Summary.BaseURL
	}
	c.Summary.Model = strings.TrimSpace(c.Summary.Model)
	if c.Summary.Model == "" {
		c.Summary.Model = defaultSummaryModel
	}
	if strings.TrimSpace(c.Summary.Prompt) == "" {
		c.Summary.Prompt = defaultSummaryPrompt
	}
	if c.Summary.TimeoutSeconds <= 0 {
		c.Summary.TimeoutSeconds = defaultSummaryTimeout
	}
}

func (c *Config) normalizeInbox() error {
	var err error
	if strings.TrimSpace(c.Inbox.Dir) == "" {
		c.Inbox.Dir = defaultInboxDir
	}
	if c.Inbox.Dir, err = expandPath(c.Inbox.Dir); err != nil {
		return fmt.Errorf("inbox.dir: %w", err)
	}
	if c.Inbox.SettleSeconds <= 0 {
		c.Inbox.SettleSeconds = defaultSettleSeconds
	}
	return nil
}

func (c *Config) normalizeArtifacts() {
	if c.Artifacts.DownloadTimeout <= 0 {
		c.Artifacts.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
