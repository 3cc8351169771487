package config

import "strings"

func Normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.SourcesFile == "" {
		cfg.SourcesFile = def.SourcesFile
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = def.Storage.Root
	}
	cfg.Storage.LinkMode = strings.ToLower(strings.TrimSpace(cfg.Storage.LinkMode))
	if cfg.Storage.LinkMode == "" {
		cfg.Storage.LinkMode = LinkModeAuto
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Network.Timeout == "" {
		cfg.Network.Timeout = DefaultTimeout
	}
	if cfg.Network.APIBase == "" {
		cfg.Network.APIBase = DefaultAPIBase
	}
	if cfg.Network.RawBase == "" {
		cfg.Network.RawBase = DefaultRawBase
	}
	if cfg.Network.RetryAttempts <= 0 {
		cfg.Network.RetryAttempts = def.Network.RetryAttempts
	}
	cfg.Network.APIBase = strings.TrimRight(cfg.Network.APIBase, "/")
	cfg.Network.RawBase = strings.TrimRight(cfg.Network.RawBase, "/")
	cfg.UI.Agent = strings.ToLower(strings.TrimSpace(cfg.UI.Agent))
	if cfg.UI.Agent == "" {
		cfg.UI.Agent = DefaultAgent
	}
	if cfg.UI.Scope == "" {
		cfg.UI.Scope = string(ScopeGlobal)
	}
	if cfg.UI.Language == "" {
		cfg.UI.Language = def.UI.Language
	}
	return cfg
}
