package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindProjectRoot(t *testing.T) {
	t.Run("finds marker in current dir", func(t *testing.T) {
		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, ".skillsync"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, ".skillsync", "project.toml"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
		got, ok := FindProjectRoot(root)
		if !ok || got != root {
			t.Fatalf("expected %s, got %s (found=%v)", root, got, ok)
		}
	})

	t.Run("finds git root from nested dir", func(t *testing.T) {
		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
			t.Fatal(err)
		}
		nested := filepath.Join(root, "a", "b", "c")
		if err := os.MkdirAll(nested, 0o755); err != nil {
			t.Fatal(err)
		}
		got, ok := FindProjectRoot(nested)
		if !ok || got != root {
			t.Fatalf("expected %s, got %s (found=%v)", root, got, ok)
		}
	})

	t.Run("storage root in home is not a project", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("SKILLSYNC_CONFIG", "")
		if _, err := Ensure(DefaultConfigPath()); err != nil {
			t.Fatal(err)
		}
		cwd := filepath.Join(home, "Downloads")
		if err := os.MkdirAll(cwd, 0o755); err != nil {
			t.Fatal(err)
		}
		if got, ok := FindProjectRoot(cwd); ok {
			t.Fatalf("expected no project, got %s", got)
		}
		got, err := ResolveProjectRoot("", cwd)
		if err != nil || got != "" {
			t.Fatalf("expected empty root, got %q (%v)", got, err)
		}
	})

	t.Run("explicit root wins", func(t *testing.T) {
		root := t.TempDir()
		got, err := ResolveProjectRoot(root, "/")
		if err != nil || got != root {
			t.Fatalf("expected %s, got %s (%v)", root, got, err)
		}
	})

	t.Run("explicit file is rejected", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "f")
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ResolveProjectRoot(file, ""); err == nil {
			t.Fatalf("expected error for non-directory root")
		}
	})
}
