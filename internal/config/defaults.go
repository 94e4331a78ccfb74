package config

const (
	defaultStateDir        = "~/.local/share/murmur"
	defaultLogDir          = "~/.local/share/murmur/logs"
	defaultWorkDir         = "~/.local/share/murmur/work"
	defaultInboxDir        = "~/.local/share/murmur/inbox"
	defaultModelSize       = "small"
	defaultLanguage        = "en"
	defaultSummaryBaseURL  = "http://127.0.0.1:11434"
	defaultSummaryModel    = "qwen2.5:7b-instruct"
	defaultSummaryPrompt   = "Summarize the transcript."
	defaultSummaryTimeout  = 120
	defaultSettleSeconds   = 2
	defaultDownloadTimeout = 300
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
		},
		Whisper: Whisper{
			ModelSize: defaultModelSize,
			Language:  defaultLanguage,
		},
		Summary: Summary{
			BaseURL:        defaultSummaryBaseURL,
			Model:          defaultSummaryModel,
			Prompt:         defaultSummaryPrompt,
			TimeoutSeconds: defaultSummaryTimeout,
		},
		Inbox: Inbox{
			Dir:           defaultInboxDir,
			SettleSeconds: defaultSettleSeconds,
		},
		Artifacts: Artifacts{
			DownloadTimeout: defaultDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
