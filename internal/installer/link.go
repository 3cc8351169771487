package installer

import (
	"os"
	"path/filepath"
)

// isLink reports whether path is a directory link rather than a real
// directory. Real directories are never treated as links.
func isLink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return isLinkMode(info.Mode())
}

// removeLink deletes the link at path without touching its target.
func removeLink(path string) error {
	if !isLink(path) {
		return &os.PathError{Op: "remove link", Path: path, Err: os.ErrInvalid}
	}
	return os.Remove(path)
}

// probeLinks reports whether directory links can be created on this machine.
func probeLinks() bool {
	dir, err := os.MkdirTemp("", "skillsync-probe-*")
	if err != nil {
		return false
	}
	defer os.RemoveAll(dir)
	target := filepath.Join(dir, "target")
	if err := os.Mkdir(target, 0o755); err != nil {
		return false
	}
	link := filepath.Join(dir, "link")
	if err := linkDir(target, link); err != nil {
		return false
	}
	return isLink(link)
}
