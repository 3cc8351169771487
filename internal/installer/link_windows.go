//go:build windows

package installer

import (
	"fmt"
	"os"
	"os/exec"
)

// linkDir tries a directory symlink first and falls back to a junction,
// which needs no elevated privileges.
func linkDir(target, link string) error {
	if err := os.Symlink(target, link); err == nil {
		return nil
	}
	out, err := exec.Command("cmd", "/c", "mklink", "/J", link, target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mklink /J: %w: %s", err, out)
	}
	return nil
}

// Junctions are reported as irregular directories rather than symlinks.
func isLinkMode(mode os.FileMode) bool {
	return mode&os.ModeSymlink != 0 || mode&os.ModeIrregular != 0
}
