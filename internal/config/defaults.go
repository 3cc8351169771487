package config

const (
	SchemaVersion = 1

	DefaultAPIBase = "https://api.github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
	DefaultTimeout = "30s"
	DefaultAgent   = "claude"
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version:     SchemaVersion,
		SourcesFile: "~/.skillsync/sources.json",
		Storage: StorageConfig{
			Root:         "~/.skillsync",
			DualLocation: true,
			LinkMode:     LinkModeAuto,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Network: NetworkConfig{
			Timeout:       DefaultTimeout,
			APIBase:       DefaultAPIBase,
			RawBase:       DefaultRawBase,
			RetryAttempts: 3,
		},
		UI: UIConfig{
			Agent:    DefaultAgent,
			Scope:    string(ScopeGlobal),
			Language: "en",
		},
	}
}
