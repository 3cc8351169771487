package config

// Build metadata, overridden with -ldflags "-X skillsync/internal/config.Version=...".
var (
	Version = "0.1.0"
	Commit  = "none"
	Date    = "unknown"
)
