// Package adapter maps agent tools to the directories they read skills from
// and resolves the install directory for an agent and scope.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"skillsync/internal/config"
)

// Agent is one supported agent tool. The table is fixed at compile time.
type Agent struct {
	ID          string
	DisplayName string
	// root is the tool's own directory; its presence means the tool is installed.
	root       func(home string) string
	globalDir  func(home string) string
	projectDir func(project string) string
	// validate runs last during resolution and may reject the target.
	validate func(scope config.Scope, base string) error
}

// Root returns the tool's marker directory below home.
func (a Agent) Root(home string) string { return a.root(home) }

// Dir returns the install directory for scope below base, which is the home
// directory for global scope and the project root for project scope.
func (a Agent) Dir(scope config.Scope, base string) string {
	if scope == config.ScopeProject {
		return a.projectDir(base)
	}
	return a.globalDir(base)
}

func homeDot(name string) func(string) string {
	return func(home string) string { return filepath.Join(home, "."+name) }
}

func under(root func(string) string, elem ...string) func(string) string {
	return func(base string) string { return filepath.Join(append([]string{root(base)}, elem...)...) }
}

func codexRoot(home string) string {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".codex")
}

func opencodeRoot(home string) string {
	return filepath.Join(home, ".config", "opencode")
}

func validateCopilot(scope config.Scope, base string) error {
	if scope != config.ScopeProject {
		return nil
	}
	p := filepath.Join(base, ".github")
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return fmt.Errorf("ADP_COPILOT: %s exists and is not a directory", p)
	}
	return nil
}

var agents = map[string]Agent{
	"claude": {
		ID: "claude", DisplayName: "Claude Code",
		root:       homeDot("claude"),
		globalDir:  under(homeDot("claude"), "skills"),
		projectDir: under(homeDot("claude"), "skills"),
	},
	"codex": {
		ID: "codex", DisplayName: "Codex",
		root:       codexRoot,
		globalDir:  under(codexRoot, "skills"),
		projectDir: under(homeDot("codex"), "skills"),
	},
	"cursor": {
		ID: "cursor", DisplayName: "Cursor",
		root:       homeDot("cursor"),
		globalDir:  under(homeDot("cursor"), "skills"),
		projectDir: under(homeDot("cursor"), "skills"),
	},
	"gemini": {
		ID: "gemini", DisplayName: "Gemini CLI",
		root:       homeDot("gemini"),
		globalDir:  under(homeDot("gemini"), "skills"),
		projectDir: under(homeDot("gemini"), "skills"),
	},
	"copilot": {
		ID: "copilot", DisplayName: "GitHub Copilot",
		root:       homeDot("copilot"),
		globalDir:  under(homeDot("copilot"), "skills"),
		projectDir: under(homeDot("github"), "skills"),
		validate:   validateCopilot,
	},
	"opencode": {
		ID: "opencode", DisplayName: "OpenCode",
		root:       opencodeRoot,
		globalDir:  under(opencodeRoot, "skill"),
		projectDir: under(homeDot("opencode"), "skill"),
	},
}

// Lookup returns the agent registered under id.
func Lookup(id string) (Agent, bool) {
	a, ok := agents[id]
	return a, ok
}

// IDs lists every supported agent id, sorted.
func IDs() []string {
	out := make([]string, 0, len(agents))
	for id := range agents {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
