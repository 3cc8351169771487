package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"skillsync/internal/store"
)

type gitExecFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

func defaultGitExec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, string(out))
	}
	return out, nil
}

var errNoRepo = errors.New("INS_VCS: no local repository")

// vcs records an install-time snapshot of a package directory so local edits
// can be detected and reverted without a network round-trip.
type vcs struct {
	exec gitExecFunc
}

// identity keeps commits independent of the user's git configuration.
var identity = []string{
	"-c", "user.name=skillsync",
	"-c", "user.email=skillsync@localhost",
	"-c", "commit.gpgsign=false",
}

func hasRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// baseline initialises a repository in dir and commits every file as the
// installed snapshot. The metadata file is excluded so rewriting it never
// reads as a local change.
func (v vcs) baseline(ctx context.Context, dir string) error {
	if !hasRepo(dir) {
		if _, err := v.exec(ctx, dir, "init", "-q"); err != nil {
			return err
		}
	}
	if err := appendExclude(dir, store.MetadataFile); err != nil {
		return fmt.Errorf("INS_VCS_EXCLUDE: %w", err)
	}
	if _, err := v.exec(ctx, dir, "add", "-A"); err != nil {
		return err
	}
	args := append(append([]string{}, identity...), "commit", "-q", "--no-gpg-sign", "--allow-empty", "-m", "skillsync: installed snapshot")
	_, err := v.exec(ctx, dir, args...)
	return err
}

// modified reports whether the working tree differs from the snapshot. Any
// failure reads as unmodified.
func (v vcs) modified(ctx context.Context, dir string) (bool, error) {
	if !hasRepo(dir) {
		return false, nil
	}
	out, err := v.exec(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// restore reverts tracked files and drops untracked ones. Excluded files
// (the metadata) survive because clean runs without -x.
func (v vcs) restore(ctx context.Context, dir string) error {
	if !hasRepo(dir) {
		return errNoRepo
	}
	if _, err := v.exec(ctx, dir, "reset", "-q", "--hard", "HEAD"); err != nil {
		return err
	}
	_, err := v.exec(ctx, dir, "clean", "-fdq")
	return err
}

func appendExclude(dir, pattern string) error {
	path := filepath.Join(dir, ".git", "info", "exclude")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	prefix := ""
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + pattern + "\n")
	return err
}
