package installer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsync/internal/config"
	"skillsync/internal/skill"
	"skillsync/internal/store"
)

func TestCheckUpdatesAssignsLegacyPlaceholder(t *testing.T) {
	toolDir := t.TempDir()
	dir := filepath.Join(toolDir, "alpha--foo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("old"), 0o644))

	s := newTestService(fooRemote(), config.LinkModeAuto)
	latest := fooSkill()
	latest.LatestRevision = "9999999"

	got, err := s.CheckUpdates(context.Background(), []skill.Skill{latest}, Target{ToolDir: toolDir})
	require.NoError(t, err)
	info, ok := got["alpha:foo"]
	require.True(t, ok)
	assert.Equal(t, store.LegacyVersion, info.InstalledRevision)
	assert.False(t, info.HasUpdate)

	meta, err := store.LoadMetadata(dir)
	require.NoError(t, err, "legacy placeholder is persisted")
	assert.Equal(t, "alpha:foo", meta.SkillID)
	assert.True(t, meta.IsLegacy())
}

func TestCheckUpdatesComparesRevisionsAndSkipsModified(t *testing.T) {
	toolDir := t.TempDir()
	write := func(name, rev string) string {
		dir := filepath.Join(toolDir, name)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
		id, _ := skill.IDFromDirName(name)
		require.NoError(t, store.SaveMetadata(dir, store.Metadata{SkillID: id, InstalledVersion: rev}))
		return dir
	}
	write("alpha--old", "1111111")
	write("alpha--current", "2222222")
	edited := write("alpha--edited", "1111111")
	write("alpha--unknown", "3333333")
	require.NoError(t, os.MkdirAll(filepath.Join(toolDir, "not-a-skill"), 0o755))

	s := newTestService(fooRemote(), config.LinkModeAuto)
	s.git = vcs{exec: func(_ context.Context, dir string, args ...string) ([]byte, error) {
		if dir == edited && strings.Join(args, " ") == "status --porcelain" {
			return []byte(" M SKILL.md\n"), nil
		}
		return nil, nil
	}}

	catalog := []skill.Skill{
		{ID: "alpha:old", LatestRevision: "9999999"},
		{ID: "alpha:current", LatestRevision: "2222222"},
		{ID: "alpha:edited", LatestRevision: "9999999"},
	}
	got, err := s.CheckUpdates(context.Background(), catalog, Target{ToolDir: toolDir})
	require.NoError(t, err)

	assert.True(t, got["alpha:old"].HasUpdate)
	assert.Equal(t, "9999999", got["alpha:old"].LatestRevision)
	assert.False(t, got["alpha:current"].HasUpdate)
	assert.False(t, got["alpha:unknown"].HasUpdate)
	_, present := got["alpha:edited"]
	assert.False(t, present, "locally modified skills are left out")
	assert.Len(t, got, 3)
}

func TestScanInstalledIgnoresDirectoriesOfUnknownSources(t *testing.T) {
	toolDir := t.TempDir()
	notes := filepath.Join(toolDir, "my--notes")
	require.NoError(t, os.MkdirAll(notes, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notes, "todo.md"), []byte("mine"), 0o644))
	legacy := filepath.Join(toolDir, "alpha--foo")
	require.NoError(t, os.MkdirAll(legacy, 0o755))

	s := New(Options{Remote: fooRemote(), KnownSource: func(id string) bool { return id == "alpha" }})
	s.git = vcs{exec: noGit}
	target := Target{ToolDir: toolDir}

	got, err := s.ScanInstalled(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha:foo", got[0].ID)
	assert.NoFileExists(t, filepath.Join(notes, store.MetadataFile))

	res, err := s.Uninstall(context.Background(), "my:notes", target)
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.FileExists(t, filepath.Join(notes, "todo.md"))
}

func TestUpdatesFromReusesScan(t *testing.T) {
	installed := []Installed{
		{ID: "alpha:old", Metadata: store.Metadata{SkillID: "alpha:old", InstalledVersion: "1111111"}},
		{ID: "alpha:legacy", Metadata: store.Metadata{SkillID: "alpha:legacy", InstalledVersion: store.LegacyVersion}},
		{ID: "alpha:edited", Modified: true, Metadata: store.Metadata{SkillID: "alpha:edited", InstalledVersion: "1111111"}},
	}
	catalog := []skill.Skill{
		{ID: "alpha:old", LatestRevision: "2222222"},
		{ID: "alpha:legacy", LatestRevision: "2222222"},
		{ID: "alpha:edited", LatestRevision: "2222222"},
	}
	got := UpdatesFrom(installed, catalog)
	assert.True(t, got["alpha:old"].HasUpdate)
	assert.False(t, got["alpha:legacy"].HasUpdate)
	assert.NotContains(t, got, "alpha:edited")
}

func TestScanInstalledWithoutToolDir(t *testing.T) {
	s := newTestService(fooRemote(), config.LinkModeAuto)
	got, err := s.ScanInstalled(context.Background(), Target{ToolDir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalModificationTrackingWithGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(fooRemote(), config.LinkModeAuto)
	s.git = vcs{exec: defaultGitExec}
	ctx := context.Background()

	res, err := s.Install(ctx, fooSkill(), target, nil)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	_, tool := s.Paths("alpha:foo", target)
	assert.False(t, s.CheckLocalModified(ctx, tool))

	// Rewriting metadata is not a local change.
	meta, err := store.LoadMetadata(tool)
	require.NoError(t, err)
	meta.InstalledVersion = "other"
	require.NoError(t, store.SaveMetadata(tool, meta))
	assert.False(t, s.CheckLocalModified(ctx, tool))

	require.NoError(t, os.WriteFile(filepath.Join(tool, "SKILL.md"), []byte("edited"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tool, "scratch.txt"), []byte("mine"), 0o644))
	assert.True(t, s.CheckLocalModified(ctx, tool))

	restored, err := s.RestoreOfficial(ctx, fooSkill(), target, nil)
	require.NoError(t, err)
	assert.True(t, restored.Restored)
	assert.False(t, s.CheckLocalModified(ctx, tool))
	_, err = os.Stat(filepath.Join(tool, "scratch.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = store.LoadMetadata(tool)
	assert.NoError(t, err, "metadata survives a restore")
}

func TestCheckLocalModifiedWithoutRepository(t *testing.T) {
	s := newTestService(fooRemote(), config.LinkModeAuto)
	assert.False(t, s.CheckLocalModified(context.Background(), t.TempDir()))
}
