package config

import (
	"errors"
	"fmt"
	"strings"
)

// ModelSizes lists the supported whisper model sizes, smallest first.
func ModelSizes() []string {
	return []string{"tiny", "base", "small", "medium", "large-v3"}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateSummary(); err != nil {
		return err
	}
	if err := c.validateInbox(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWhisper() error {
	for _, size := range ModelSizes() {
		if c.Whisper.ModelSize == size {
			return nil
		}
	}
	return fmt.Errorf("whisper.model_size must be one of %s, got %q",
		strings.Join(ModelSizes(), ", "), c.Whisper.ModelSize)
}

func (c *Config) validateSummary() error {
	if c.Summary.Auto && !c.Summary.Enabled {
		return errors.New("summary.auto requires summary.enabled to be true")
	}
	if !c.Summary.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.Summary.BaseURL, "http://") && !strings.HasPrefix(c.Summary.BaseURL, "https://") {
		return fmt.Errorf("summary.base_url must be an http(s) URL, got %q", c.Summary.BaseURL)
	}
	if strings.TrimSpace(c.Summary.Model) == "" {
		return errors.New("summary.model must be set when summary.enabled is true")
	}
	if c.Summary.TimeoutSeconds <= 0 {
		return errors.New("summary.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateInbox() error {
	if !c.Inbox.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Inbox.Dir) == "" {
		return errors.New("inbox.dir must be set when inbox.enabled is true")
	}
	if c.Inbox.SettleSeconds <= 0 {
		return errors.New("inbox.settle_seconds must be positive")
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if c.Artifacts.DownloadTimeout <= 0 {
		return errors.New("artifacts.download_timeout must be positive (seconds)")
	}
	return nil
}
