package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Ensure(path)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if cfg.UI.Agent != "claude" || cfg.UI.Scope != "global" {
		t.Fatalf("unexpected ui defaults: %+v", cfg.UI)
	}
	if !cfg.Storage.DualLocation {
		t.Fatalf("expected dual location enabled by default")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file on disk: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Storage.LinkMode = "copy"
	cfg.UI.ShowAICategories = true
	SetToken(&cfg, "  abc  ")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Storage.LinkMode != "copy" || !got.UI.ShowAICategories || got.GitHub.Token != "abc" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	blob := "version = 1\n[network]\napi_base = \"http://127.0.0.1:9/\"\n"
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Network.APIBase != "http://127.0.0.1:9" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Network.APIBase)
	}
	if cfg.Network.RawBase != DefaultRawBase || cfg.Network.Timeout != DefaultTimeout {
		t.Fatalf("expected network defaults, got %+v", cfg.Network)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"CFG_VERSION": func(c *Config) { c.Version = 2 },
		"CFG_STORAGE": func(c *Config) { c.Storage.LinkMode = "hardlink" },
		"CFG_NETWORK": func(c *Config) { c.Network.Timeout = "soon" },
		"CFG_SCOPE":   func(c *Config) { c.UI.Scope = "workspace" },
	}
	for code, mutate := range cases {
		t.Run(code, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			err := Validate(cfg)
			if err == nil || !strings.HasPrefix(err.Error(), code) {
				t.Fatalf("expected %s error, got %v", code, err)
			}
		})
	}
}

func TestTokenPrefersEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GitHub.Token = "from-config"
	t.Setenv("SKILLSYNC_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	if got := cfg.Token(); got != "from-config" {
		t.Fatalf("expected config token, got %q", got)
	}
	t.Setenv("GITHUB_TOKEN", "from-env")
	if got := cfg.Token(); got != "from-env" {
		t.Fatalf("expected env token, got %q", got)
	}
}

func TestMutators(t *testing.T) {
	cfg := DefaultConfig()
	if err := SetLanguage(&cfg, "zh-hans"); err != nil {
		t.Fatalf("set language failed: %v", err)
	}
	if cfg.UI.Language != "zh-Hans" {
		t.Fatalf("expected canonical tag, got %q", cfg.UI.Language)
	}
	if err := SetLanguage(&cfg, "not a tag!"); err == nil {
		t.Fatalf("expected invalid language error")
	}
	if err := SetScope(&cfg, "Project"); err != nil || cfg.UI.Scope != "project" {
		t.Fatalf("set scope: %v %q", err, cfg.UI.Scope)
	}
	if err := SetAgent(&cfg, " Codex "); err != nil || cfg.UI.Agent != "codex" {
		t.Fatalf("set agent: %v %q", err, cfg.UI.Agent)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got, err := ExpandPath("~/x/y")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "x", "y") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if _, err := ExpandPath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
