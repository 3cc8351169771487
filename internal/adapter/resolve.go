package adapter

import (
	"errors"
	"fmt"
	"os"

	"skillsync/internal/config"
)

var (
	ErrUnknownAgent     = errors.New("ADP_UNKNOWN_AGENT: unknown agent")
	ErrNoProject        = errors.New("PRJ_REQUIRED: project scope requires an open project")
	ErrToolNotInstalled = errors.New("ADP_TOOL_MISSING: agent tool is not installed")
)

// Resolver computes install directories. It is immutable after construction.
type Resolver struct {
	home        string
	projectRoot string
}

// NewResolver builds a resolver. projectRoot may be empty when no project is
// open.
func NewResolver(home, projectRoot string) *Resolver {
	return &Resolver{home: home, projectRoot: projectRoot}
}

func (r *Resolver) Home() string        { return r.home }
func (r *Resolver) ProjectRoot() string { return r.projectRoot }

// Resolve returns the directory skills for agentID in scope are installed
// to, creating it when only the subdirectory is missing. With
// throwOnMissing=false a missing project or a missing tool yields "" and no
// error. An unknown agent is always an error.
func (r *Resolver) Resolve(agentID string, scope config.Scope, throwOnMissing bool) (string, error) {
	agent, ok := Lookup(agentID)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownAgent, agentID)
	}
	var base string
	switch scope {
	case config.ScopeProject:
		if r.projectRoot == "" {
			if throwOnMissing {
				return "", ErrNoProject
			}
			return "", nil
		}
		base = r.projectRoot
	case config.ScopeGlobal, "":
		scope = config.ScopeGlobal
		base = r.home
		root := agent.Root(r.home)
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			if throwOnMissing {
				return "", fmt.Errorf("%w: %s (expected %s)", ErrToolNotInstalled, agent.DisplayName, root)
			}
			return "", nil
		}
	default:
		return "", fmt.Errorf("CFG_SCOPE: invalid scope %q", scope)
	}

	dir := agent.Dir(scope, base)
	if agent.validate != nil {
		if err := agent.validate(scope, base); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ADP_MKDIR: %w", err)
	}
	return dir, nil
}
