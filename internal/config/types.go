package config

// Config is the v1 global schema.
type Config struct {
	Version     int           `toml:"version"`
	SourcesFile string        `toml:"sources_file"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Network     NetworkConfig `toml:"network"`
	GitHub      GitHubConfig  `toml:"github"`
	UI          UIConfig      `toml:"ui"`
}

type StorageConfig struct {
	Root string `toml:"root"`
	// DualLocation keeps real files under Root and exposes them to the agent
	// through a directory link (or a copy, see LinkMode).
	DualLocation bool   `toml:"dual_location"`
	LinkMode     string `toml:"link_mode"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type NetworkConfig struct {
	Timeout       string `toml:"timeout"`
	APIBase       string `toml:"api_base"`
	RawBase       string `toml:"raw_base"`
	RetryAttempts int    `toml:"retry_attempts"`
}

type GitHubConfig struct {
	Token string `toml:"token,omitempty"`
}

// UIConfig holds the settings the presentation layer toggles.
type UIConfig struct {
	Agent            string `toml:"agent"`
	Scope            string `toml:"scope"`
	Language         string `toml:"language"`
	ShowAICategories bool   `toml:"show_ai_categories"`
}

// Scope represents the installation scope: global or project.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
)

const (
	LinkModeAuto = "auto"
	LinkModeLink = "link"
	LinkModeCopy = "copy"
)
