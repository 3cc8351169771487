package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnsureLayoutCreatesExpectedDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "state")
	if err := EnsureLayout(root); err != nil {
		t.Fatalf("ensure layout failed: %v", err)
	}
	for _, dir := range []string{root, CacheRoot(root), SkillsRoot(root)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}
}

func TestEnsureLayoutErrorsWhenRootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatalf("write root file failed: %v", err)
	}
	if err := EnsureLayout(root); err == nil {
		t.Fatalf("expected ensure layout to fail when root is a file")
	}
}

func TestBackingRootSeparatesScopes(t *testing.T) {
	g := BackingRoot("/r", "claude", "global", "")
	p1 := BackingRoot("/r", "claude", "project", "/work/a")
	p2 := BackingRoot("/r", "claude", "project", "/work/b")
	if g != filepath.Join("/r", "skills", "global", "claude") {
		t.Fatalf("unexpected global root %q", g)
	}
	if p1 == p2 || p1 == g {
		t.Fatalf("expected distinct roots, got %q %q %q", g, p1, p2)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadMetadata(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	want := Metadata{
		SkillID:          "alpha:foo",
		InstalledVersion: "abc1234",
		InstalledAt:      time.Now().UTC().Round(time.Second),
		Source:           "alpha",
		RepoOwner:        "o",
		RepoName:         "r",
		SkillPath:        "skills/foo",
		Branch:           "main",
		JunctionPath:     "/home/u/.claude/skills/alpha--foo",
	}
	if err := SaveMetadata(dir, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadMetadata(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !got.InstalledAt.Equal(want.InstalledAt) {
		t.Fatalf("installedAt mismatch: %v vs %v", got.InstalledAt, want.InstalledAt)
	}
	got.InstalledAt = want.InstalledAt
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestMetadataUsesDocumentedKeys(t *testing.T) {
	dir := t.TempDir()
	if err := SaveMetadata(dir, Metadata{SkillID: "a:b", InstalledVersion: LegacyVersion, Source: "a"}); err != nil {
		t.Fatal(err)
	}
	blob, err := os.ReadFile(MetadataPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"skillId"`, `"installedVersion"`, `"installedAt"`, `"source"`} {
		if !strings.Contains(string(blob), key) {
			t.Fatalf("expected key %s in %s", key, blob)
		}
	}
}
