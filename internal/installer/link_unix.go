//go:build !windows

package installer

import (
	"os"
	"path/filepath"
)

// linkDir creates a relative symlink at link pointing to target.
func linkDir(target, link string) error {
	rel, err := filepath.Rel(filepath.Dir(link), target)
	if err != nil {
		rel = target
	}
	return os.Symlink(rel, link)
}

func isLinkMode(mode os.FileMode) bool {
	return mode&os.ModeSymlink != 0
}
