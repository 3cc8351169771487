package config

import (
	"fmt"
	"time"
)

var allowedLinkModes = map[string]struct{}{
	LinkModeAuto: {},
	LinkModeLink: {},
	LinkModeCopy: {},
}

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CFG_VERSION: unsupported version %d", cfg.Version)
	}
	if cfg.Storage.Root == "" {
		return fmt.Errorf("CFG_STORAGE: missing storage root")
	}
	if _, ok := allowedLinkModes[cfg.Storage.LinkMode]; !ok {
		return fmt.Errorf("CFG_STORAGE: invalid link mode %q; use auto, link or copy", cfg.Storage.LinkMode)
	}
	if cfg.SourcesFile == "" {
		return fmt.Errorf("CFG_SOURCES: missing sources file")
	}
	if cfg.Logging.Level == "" || cfg.Logging.Format == "" {
		return fmt.Errorf("CFG_LOGGING: missing logging level/format")
	}
	if d, err := time.ParseDuration(cfg.Network.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("CFG_NETWORK: invalid timeout %q", cfg.Network.Timeout)
	}
	if _, err := ParseScope(cfg.UI.Scope); err != nil {
		return err
	}
	return nil
}

// ParseScope validates a scope string. Empty means global.
func ParseScope(v string) (Scope, error) {
	switch Scope(v) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeProject:
		return ScopeProject, nil
	default:
		return "", fmt.Errorf("CFG_SCOPE: invalid scope %q; use 'global' or 'project'", v)
	}
}

// NetworkTimeout returns the parsed transport timeout.
func (c Config) NetworkTimeout() time.Duration {
	d, err := time.ParseDuration(c.Network.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}
