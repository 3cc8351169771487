package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

func CacheRoot(root string) string {
	return filepath.Join(root, "cache")
}

func SkillsRoot(root string) string {
	return filepath.Join(root, "skills")
}

func AuditPath(root string) string {
	return filepath.Join(root, "audit.log")
}

// BackingRoot is where real package files for one agent and scope live.
// Project scopes are keyed by a digest of the project root so two projects
// never share backing directories.
func BackingRoot(root, agent, scope, projectRoot string) string {
	key := "global"
	if scope == "project" {
		sum := sha256.Sum256([]byte(filepath.Clean(projectRoot)))
		key = "project-" + hex.EncodeToString(sum[:6])
	}
	return filepath.Join(SkillsRoot(root), key, agent)
}

func EnsureLayout(root string) error {
	for _, d := range []string{root, CacheRoot(root), SkillsRoot(root)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
