package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const maxAncestorSearch = 50

// projectMarkers identify a project root. A bare .skillsync directory is not
// one: the storage root in the home directory uses the same name.
var projectMarkers = []string{
	filepath.Join(".skillsync", "project.toml"),
	".git",
}

// FindProjectRoot walks up from startDir looking for a project marker: a
// .skillsync/project.toml file or a version-control root.
// Returns (projectRoot, true) if found, or ("", false) if not.
func FindProjectRoot(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for i := 0; i < maxAncestorSearch; i++ {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

// ResolveProjectRoot returns the explicit root when given, otherwise the
// project detected from cwd. An empty result means no project is open.
func ResolveProjectRoot(explicit, cwd string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("PRJ_ROOT: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("PRJ_ROOT: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("PRJ_ROOT: %s is not a directory", abs)
		}
		return abs, nil
	}
	root, _ := FindProjectRoot(cwd)
	return root, nil
}
