package installer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsync/internal/adapter"
	"skillsync/internal/audit"
	"skillsync/internal/config"
	"skillsync/internal/skill"
	"skillsync/internal/store"
)

type fakeRemote struct {
	files   map[string]string
	failOn  string
	fetched []string
}

func (r *fakeRemote) ListFiles(_ context.Context, _, _, dir, _ string) ([]string, error) {
	var out []string
	for p := range r.files {
		if strings.HasPrefix(p, dir+"/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeRemote) FetchRaw(_ context.Context, _, _, _, file string) ([]byte, error) {
	r.fetched = append(r.fetched, file)
	if file == r.failOn {
		return nil, errors.New("connection reset")
	}
	body, ok := r.files[file]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(body), nil
}

func noGit(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("git unavailable")
}

func fooSkill() skill.Skill {
	return skill.Skill{
		ID: "alpha:foo", Name: "foo", Description: "does foo", SourceID: "alpha",
		RepoOwner: "acme", RepoName: "kit", Branch: "main", RelativePath: "skills/foo",
		LatestRevision: "abc1234",
	}
}

func fooRemote() *fakeRemote {
	return &fakeRemote{files: map[string]string{
		"skills/foo/SKILL.md":        "---\nname: foo\ndescription: does foo\n---\n",
		"skills/foo/scripts/run.sh":  "echo foo\n",
		"skills/foo/reference/a.md":  "# a\n",
		"skills/foobar/SKILL.md":     "not ours",
		"skills/foo/.skillsync.json": `{"skillId":"forged"}`,
	}}
}

func newTestService(remote Remote, mode string) *Service {
	s := New(Options{Remote: remote, LinkMode: mode})
	s.git = vcs{exec: noGit}
	s.probe = func() bool { return true }
	return s
}

func TestInstallToGlobalAgentThroughBackingStore(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".claude"), 0o755))
	toolDir, err := adapter.NewResolver(home, "").Resolve("claude", config.ScopeGlobal, true)
	require.NoError(t, err)
	target := Target{ToolDir: toolDir, StorageDir: filepath.Join(t.TempDir(), "store")}

	var progress [][2]int
	s := newTestService(fooRemote(), config.LinkModeAuto)
	res, err := s.Install(context.Background(), fooSkill(), target, func(cur, total int) {
		progress = append(progress, [2]int{cur, total})
	})
	require.NoError(t, err)
	assert.Equal(t, ModeLink, res.Mode)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	tool := filepath.Join(toolDir, "alpha--foo")
	assert.True(t, isLink(tool))
	body, err := os.ReadFile(filepath.Join(tool, "scripts", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, "echo foo\n", string(body))

	meta, err := store.LoadMetadata(filepath.Join(target.StorageDir, "alpha--foo"))
	require.NoError(t, err)
	assert.Equal(t, "alpha:foo", meta.SkillID)
	assert.Equal(t, "abc1234", meta.InstalledVersion)
	assert.Equal(t, "skills/foo", meta.SkillPath)
	assert.Equal(t, tool, meta.JunctionPath)

	_, err = s.Install(context.Background(), fooSkill(), target, nil)
	assert.ErrorIs(t, err, ErrAlreadyInstalled)
}

func TestInstallRollsBackOnDownloadFailure(t *testing.T) {
	remote := fooRemote()
	remote.failOn = "skills/foo/reference/a.md"
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(remote, config.LinkModeAuto)

	_, err := s.Install(context.Background(), fooSkill(), target, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INS_DOWNLOAD")

	backing, tool := s.Paths("alpha:foo", target)
	_, statErr := os.Stat(backing)
	assert.True(t, os.IsNotExist(statErr), "backing directory must be removed")
	_, statErr = os.Lstat(tool)
	assert.True(t, os.IsNotExist(statErr), "no agent link may be created")
	assert.NotContains(t, remote.fetched, "skills/foo/scripts/run.sh", "downloads stop at the first failure")
}

func TestInstallPreconditions(t *testing.T) {
	s := newTestService(fooRemote(), config.LinkModeAuto)
	target := Target{ToolDir: t.TempDir()}

	noProv := fooSkill()
	noProv.RepoOwner = ""
	_, err := s.Install(context.Background(), noProv, target, nil)
	assert.ErrorIs(t, err, ErrMissingProvenance)

	empty := fooSkill()
	empty.RelativePath = "skills/none"
	_, err = s.Install(context.Background(), empty, target, nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	entries, _ := os.ReadDir(target.ToolDir)
	assert.Empty(t, entries)
}

func TestInstallCopyModeAndUninstall(t *testing.T) {
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(fooRemote(), config.LinkModeCopy)

	res, err := s.Install(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeCopy, res.Mode)

	backing, tool := s.Paths("alpha:foo", target)
	assert.False(t, isLink(tool))
	assert.True(t, owned(tool, "alpha:foo"))

	un, err := s.Uninstall(context.Background(), "alpha:foo", target)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{tool, backing}, un.Removed)
	assert.Empty(t, un.Warning)
}

func TestDirectInstallWithoutBackingStore(t *testing.T) {
	target := Target{ToolDir: t.TempDir()}
	s := newTestService(fooRemote(), config.LinkModeAuto)

	res, err := s.Install(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, res.Mode)
	assert.Equal(t, filepath.Join(target.ToolDir, "alpha--foo"), res.Path)
	meta, err := store.LoadMetadata(res.Path)
	require.NoError(t, err)
	assert.Empty(t, meta.JunctionPath)
}

func TestUninstallLeavesForeignDirectory(t *testing.T) {
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(fooRemote(), config.LinkModeAuto)
	backing, tool := s.Paths("alpha:foo", target)
	require.NoError(t, os.MkdirAll(filepath.Join(tool, "notes"), 0o755))
	require.NoError(t, os.MkdirAll(backing, 0o755))

	res, err := s.Uninstall(context.Background(), "alpha:foo", target)
	require.NoError(t, err)
	assert.Equal(t, []string{backing}, res.Removed)
	_, err = os.Stat(filepath.Join(tool, "notes"))
	assert.NoError(t, err, "user directory must survive")
}

func TestUninstallMissingIsWarning(t *testing.T) {
	s := newTestService(fooRemote(), config.LinkModeAuto)
	res, err := s.Uninstall(context.Background(), "alpha:foo", Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.NotEmpty(t, res.Warning)
}

func TestConcurrentOperationOnSameSkillIsRejected(t *testing.T) {
	s := newTestService(fooRemote(), config.LinkModeAuto)
	release, err := s.locks.acquire("alpha:foo")
	require.NoError(t, err)
	defer release()

	target := Target{ToolDir: t.TempDir()}
	_, err = s.Install(context.Background(), fooSkill(), target, nil)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Uninstall(context.Background(), "alpha:foo", target)
	assert.ErrorIs(t, err, ErrBusy)

	other := fooSkill()
	other.ID = "beta:foo"
	_, err = s.Install(context.Background(), other, target, nil)
	assert.NoError(t, err)
}

func TestUpdateReplacesFilesAndKeepsOldOnFailure(t *testing.T) {
	remote := fooRemote()
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(remote, config.LinkModeAuto)
	_, err := s.Install(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)
	backing, tool := s.Paths("alpha:foo", target)

	next := fooSkill()
	next.LatestRevision = "def5678"
	remote.files["skills/foo/scripts/run.sh"] = "echo foo v2\n"
	res, err := s.Update(context.Background(), next, target, nil)
	require.NoError(t, err)
	assert.Equal(t, "def5678", res.Revision)
	body, err := os.ReadFile(filepath.Join(tool, "scripts", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, "echo foo v2\n", string(body))

	broken := fooSkill()
	broken.LatestRevision = "fff0000"
	remote.failOn = "skills/foo/scripts/run.sh"
	_, err = s.Update(context.Background(), broken, target, nil)
	require.Error(t, err)
	meta, err := store.LoadMetadata(backing)
	require.NoError(t, err)
	assert.Equal(t, "def5678", meta.InstalledVersion, "previous install must be restored")

	siblings, err := os.ReadDir(target.StorageDir)
	require.NoError(t, err)
	assert.Len(t, siblings, 1, "no leftover directories")
}

func TestRestoreOfficialReinstallsWithoutRepository(t *testing.T) {
	remote := fooRemote()
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(remote, config.LinkModeAuto)
	_, err := s.Install(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)

	_, tool := s.Paths("alpha:foo", target)
	require.NoError(t, os.WriteFile(filepath.Join(tool, "SKILL.md"), []byte("edited"), 0o644))

	res, err := s.RestoreOfficial(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)
	assert.False(t, res.Restored)
	body, err := os.ReadFile(filepath.Join(tool, "SKILL.md"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "name: foo")
}

func TestRestoreOfficialRecordsFallbackStep(t *testing.T) {
	remote := fooRemote()
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	s := New(Options{Remote: remote, LinkMode: config.LinkModeAuto, Audit: audit.New(auditPath)})
	s.git = vcs{exec: noGit}
	s.probe = func() bool { return true }
	_, err := s.Install(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)

	backing, _ := s.Paths("alpha:foo", target)
	require.NoError(t, os.MkdirAll(filepath.Join(backing, ".git"), 0o755))

	res, err := s.RestoreOfficial(context.Background(), fooSkill(), target, nil)
	require.NoError(t, err)
	assert.False(t, res.Restored)

	blob, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	var phases []string
	for _, line := range strings.Split(strings.TrimSpace(string(blob)), "\n") {
		var ev audit.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		if ev.Operation == "restore" {
			phases = append(phases, ev.Phase)
		}
	}
	assert.Equal(t, []string{"start", "vcs-restore-failed", "finish"}, phases)
}

func TestRepairRestoresMissingAgentPath(t *testing.T) {
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(fooRemote(), config.LinkModeLink)
	ctx := context.Background()

	_, err := s.Install(ctx, fooSkill(), target, nil)
	require.NoError(t, err)
	_, tool := s.Paths("alpha:foo", target)

	fixed, err := s.Repair(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, fixed)

	require.NoError(t, os.Remove(tool))
	fixed, err = s.Repair(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha:foo"}, fixed)
	assert.True(t, isLink(tool))
	assert.FileExists(t, filepath.Join(tool, "SKILL.md"))
}

func TestRepairLeavesForeignDirectoryAlone(t *testing.T) {
	target := Target{ToolDir: t.TempDir(), StorageDir: t.TempDir()}
	s := newTestService(fooRemote(), config.LinkModeLink)
	ctx := context.Background()

	_, err := s.Install(ctx, fooSkill(), target, nil)
	require.NoError(t, err)
	_, tool := s.Paths("alpha:foo", target)
	require.NoError(t, os.Remove(tool))
	require.NoError(t, os.MkdirAll(tool, 0o755))

	fixed, err := s.Repair(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, fixed)
	assert.False(t, isLink(tool))

	fixed, err = s.Repair(ctx, Target{ToolDir: target.ToolDir})
	require.NoError(t, err)
	assert.Empty(t, fixed)
}
