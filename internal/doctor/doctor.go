package doctor

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"skillsync/internal/adapter"
	"skillsync/internal/catalog"
	"skillsync/internal/config"
	"skillsync/internal/source"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy        bool      `json:"healthy"`
	Findings       []Finding `json:"findings"`
	DetectedAgents []string  `json:"detectedAgents,omitempty"`
}

type Service struct {
	ConfigPath  string
	SourcesPath string
	CachePath   string
	Home        string
	Agent       string
	HasToken    bool
	// LookPath finds executables; exec.LookPath when nil.
	LookPath func(string) (string, error)
}

func (s *Service) Run(_ context.Context) Report {
	findings := []Finding{}
	add := func(code, level, msg string) {
		findings = append(findings, Finding{Code: code, Level: level, Message: msg})
	}

	if _, err := os.Stat(s.ConfigPath); err != nil {
		add("DOC_CONFIG_MISSING", "error", err.Error())
	} else if _, err := config.Load(s.ConfigPath); err != nil {
		add("DOC_CONFIG_INVALID", "error", err.Error())
	}

	if reg, err := source.LoadRegistry(s.SourcesPath, false, config.Version); err != nil {
		add("DOC_SOURCES_INVALID", "error", err.Error())
	} else if reg.Len() == 0 {
		add("DOC_SOURCES_EMPTY", "warn", "no sources configured in "+s.SourcesPath)
	}

	switch _, err := catalog.LoadEnvelope(s.CachePath); {
	case errors.Is(err, os.ErrNotExist):
		add("DOC_CACHE_EMPTY", "info", "no cached catalog yet; run refresh")
	case errors.Is(err, catalog.ErrCorrupt):
		add("DOC_CACHE_CORRUPT", "warn", "cached catalog failed its integrity check and will be rebuilt")
	case err != nil:
		add("DOC_CACHE_UNREADABLE", "warn", err.Error())
	}

	detected := adapter.DetectAvailable(s.Home)
	names := make([]string, 0, len(detected))
	selectedFound := false
	for _, d := range detected {
		names = append(names, d.Name)
		if d.Name == s.Agent {
			selectedFound = true
		}
	}
	if _, ok := adapter.Lookup(s.Agent); !ok {
		add("DOC_AGENT_UNKNOWN", "error", "unknown agent "+s.Agent)
	} else if !selectedFound {
		add("DOC_AGENT_MISSING", "warn", s.Agent+" does not appear to be installed; global installs will fail")
	}

	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("git"); err != nil {
		add("DOC_GIT_MISSING", "warn", "git not found; local modification tracking is disabled")
	}
	if !s.HasToken {
		add("DOC_NO_TOKEN", "info", "no access token configured; API rate limits are low")
	}

	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	return Report{Healthy: healthy, Findings: findings, DetectedAgents: names}
}
