package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"skillsync/internal/catalog"
	"skillsync/internal/config"
	"skillsync/internal/skill"
)

func codes(r Report) map[string]string {
	out := map[string]string{}
	for _, f := range r.Findings {
		out[f.Code] = f.Level
	}
	return out
}

func TestDoctorHealthyEnvironment(t *testing.T) {
	t.Setenv("CODEX_HOME", "")
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, ".claude"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(home, ".skillsync", "config.toml")
	if err := config.Save(cfgPath, config.DefaultConfig()); err != nil {
		t.Fatalf("save config failed: %v", err)
	}
	sources := filepath.Join(home, "sources.json")
	if err := os.WriteFile(sources, []byte(`{"sources":[{"id":"a","owner":"o","repo":"r"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cachePath := catalog.CachePath(filepath.Join(home, ".skillsync"))
	if _, err := catalog.SaveEnvelope(cachePath, catalog.Envelope{Skills: []skill.Skill{{ID: "a:x"}}}); err != nil {
		t.Fatal(err)
	}

	svc := &Service{
		ConfigPath: cfgPath, SourcesPath: sources, CachePath: cachePath,
		Home: home, Agent: "claude", HasToken: true,
		LookPath: func(string) (string, error) { return "/usr/bin/git", nil },
	}
	report := svc.Run(context.Background())
	if !report.Healthy || len(report.Findings) != 0 {
		t.Fatalf("expected clean report, got %+v", report)
	}
	if len(report.DetectedAgents) != 1 || report.DetectedAgents[0] != "claude" {
		t.Fatalf("unexpected detected agents: %+v", report.DetectedAgents)
	}
}

func TestDoctorReportsProblems(t *testing.T) {
	home := t.TempDir()
	cachePath := filepath.Join(home, "cache", "skills.json")
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cachePath, []byte(`{"contentHash":"bad","skills":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := &Service{
		ConfigPath:  filepath.Join(home, "missing.toml"),
		SourcesPath: filepath.Join(home, "missing.json"),
		CachePath:   cachePath,
		Home:        home,
		Agent:       "cursor",
		LookPath:    func(string) (string, error) { return "", errors.New("not found") },
	}
	report := svc.Run(context.Background())
	if report.Healthy {
		t.Fatalf("expected unhealthy report")
	}
	got := codes(report)
	for code, level := range map[string]string{
		"DOC_CONFIG_MISSING":  "error",
		"DOC_SOURCES_INVALID": "error",
		"DOC_CACHE_CORRUPT":   "warn",
		"DOC_AGENT_MISSING":   "warn",
		"DOC_GIT_MISSING":     "warn",
		"DOC_NO_TOKEN":        "info",
	} {
		if got[code] != level {
			t.Fatalf("expected %s at %s, got %+v", code, level, report.Findings)
		}
	}
}
