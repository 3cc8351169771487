// Package installer installs, updates and removes skills for one agent
// target, keeping real files in a backing store exposed to the agent through
// a directory link or a copy.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"skillsync/internal/audit"
	"skillsync/internal/config"
	"skillsync/internal/fsutil"
	"skillsync/internal/logger"
	"skillsync/internal/skill"
	"skillsync/internal/store"
)

var (
	ErrMissingProvenance = errors.New("INS_PROVENANCE: skill record lacks owner/repo/path")
	ErrNoFiles           = errors.New("INS_NO_FILES: skill has no files")
	ErrAlreadyInstalled  = errors.New("INS_EXISTS: skill is already installed")
)

// Remote lists and downloads package files.
type Remote interface {
	ListFiles(ctx context.Context, owner, repo, dir, ref string) ([]string, error)
	FetchRaw(ctx context.Context, owner, repo, ref, file string) ([]byte, error)
}

// Target is where one agent/scope keeps its skills.
type Target struct {
	// ToolDir is the directory the agent reads skills from.
	ToolDir string
	// StorageDir holds the real files when set; each skill in ToolDir is
	// then a link (or copy) of StorageDir/<dir>. Empty installs directly
	// into ToolDir.
	StorageDir string
}

func (t Target) dual() bool { return t.StorageDir != "" }

func (t Target) toolPath(id string) string {
	return filepath.Join(t.ToolDir, skill.SafeDirName(id))
}

func (t Target) backingPath(id string) string {
	if t.dual() {
		return filepath.Join(t.StorageDir, skill.SafeDirName(id))
	}
	return t.toolPath(id)
}

// Progress is called after each downloaded file.
type Progress func(current, total int)

// Materialization modes reported in Result.
const (
	ModeDirect = "direct"
	ModeLink   = "link"
	ModeCopy   = "copy"
)

type Result struct {
	ID       string   `json:"id"`
	Path     string   `json:"path"`
	LinkPath string   `json:"linkPath,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Revision string   `json:"revision,omitempty"`
	Files    int      `json:"files,omitempty"`
	Restored bool     `json:"restored,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type Options struct {
	Remote Remote
	// LinkMode is one of config.LinkModeAuto, LinkModeLink or LinkModeCopy.
	LinkMode string
	Audit    *audit.Logger
	Now      func() time.Time
	// KnownSource reports whether a source id is registered. Directories of
	// unknown sources without metadata are not treated as installed skills.
	// Nil accepts every source.
	KnownSource func(sourceID string) bool
}

type Service struct {
	remote   Remote
	git      vcs
	linkMode string
	audit    *audit.Logger
	now      func() time.Time
	known    func(string) bool
	locks    lockTable

	probeOnce sync.Once
	canLink   bool
	probe     func() bool
}

func New(opts Options) *Service {
	s := &Service{
		remote:   opts.Remote,
		git:      vcs{exec: defaultGitExec},
		linkMode: opts.LinkMode,
		audit:    opts.Audit,
		now:      opts.Now,
		known:    opts.KnownSource,
		probe:    probeLinks,
	}
	if s.linkMode == "" {
		s.linkMode = config.LinkModeAuto
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.known == nil {
		s.known = func(string) bool { return true }
	}
	return s
}

// begin opens the audit record of one operation and tags ctx with its id.
func (s *Service) begin(ctx context.Context, operation, id string) (context.Context, *audit.Op) {
	op := s.audit.Begin(operation, id)
	return logger.WithFields(ctx, logrus.Fields{"skill": id, "op_id": op.ID()}), op
}

// Paths returns the backing directory and the agent-visible path of id.
func (s *Service) Paths(id string, t Target) (backing, tool string) {
	return t.backingPath(id), t.toolPath(id)
}

// Install downloads sk into t. Any failure before the metadata is written
// removes the partially created directory.
func (s *Service) Install(ctx context.Context, sk skill.Skill, t Target, progress Progress) (Result, error) {
	release, err := s.locks.acquire(sk.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()
	ctx, op := s.begin(ctx, "install", sk.ID)
	res, err := s.install(ctx, sk, t, progress)
	op.Done(err, map[string]string{"path": res.Path, "revision": res.Revision})
	return res, err
}

func (s *Service) install(ctx context.Context, sk skill.Skill, t Target, progress Progress) (Result, error) {
	log := logger.G(ctx).WithField("skill", sk.ID)
	if !sk.HasProvenance() {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingProvenance, sk.ID)
	}
	backing, tool := t.backingPath(sk.ID), t.toolPath(sk.ID)
	if _, err := store.LoadMetadata(backing); err == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyInstalled, sk.ID)
	}
	if fsutil.Exists(backing) && !isLink(backing) {
		log.WithField("path", backing).Warn("removing leftover directory from an interrupted install")
		if err := fsutil.RemoveAllRetry(backing); err != nil {
			return Result{}, fmt.Errorf("INS_CLEANUP: %w", err)
		}
	}

	files, err := s.remote.ListFiles(ctx, sk.RepoOwner, sk.RepoName, sk.RelativePath, sk.Branch)
	if err != nil {
		return Result{}, fmt.Errorf("INS_LIST: %s: %w", sk.ID, err)
	}
	if len(files) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoFiles, sk.ID)
	}

	rollback := func() {
		if err := fsutil.RemoveAllRetry(backing); err != nil {
			log.WithError(err).Warn("rollback could not remove backing directory")
		}
	}
	if err := os.MkdirAll(backing, 0o755); err != nil {
		return Result{}, fmt.Errorf("INS_MKDIR: %w", err)
	}
	written, err := s.download(ctx, sk, backing, files, progress)
	if err != nil {
		rollback()
		return Result{}, err
	}

	res := Result{ID: sk.ID, Path: backing, Mode: ModeDirect, Revision: sk.LatestRevision, Files: written}
	meta := store.Metadata{
		SkillID:          sk.ID,
		InstalledVersion: sk.LatestRevision,
		InstalledAt:      s.now().UTC(),
		Source:           sk.SourceID,
		RepoOwner:        sk.RepoOwner,
		RepoName:         sk.RepoName,
		SkillPath:        sk.RelativePath,
		Branch:           sk.Branch,
	}
	if t.dual() {
		meta.JunctionPath = tool
	}
	if err := store.SaveMetadata(backing, meta); err != nil {
		rollback()
		return Result{}, fmt.Errorf("INS_METADATA: %w", err)
	}

	if err := s.git.baseline(ctx, backing); err != nil {
		log.WithError(err).Warn("local version tracking unavailable")
		res.Warnings = append(res.Warnings, "local modification tracking unavailable")
	}

	if t.dual() {
		mode, err := s.materialize(ctx, sk.ID, backing, tool, t.ToolDir)
		if err != nil {
			log.WithError(err).WithField("path", tool).Warn("skill not exposed at agent path")
			res.Warnings = append(res.Warnings, "not exposed at "+tool+": "+err.Error())
		} else {
			res.Mode = mode
			res.LinkPath = tool
		}
	}
	return res, nil
}

// download fetches files one at a time so progress is reported in order;
// the first failure stops the remaining downloads.
func (s *Service) download(ctx context.Context, sk skill.Skill, dst string, files []string, progress Progress) (int, error) {
	prefix := strings.Trim(sk.RelativePath, "/") + "/"
	type item struct{ remote, local string }
	var items []item
	for _, file := range files {
		rel := strings.TrimPrefix(file, prefix)
		local := filepath.FromSlash(rel)
		if rel == file || !filepath.IsLocal(local) {
			return 0, fmt.Errorf("INS_PATH: %s is outside %s", file, sk.RelativePath)
		}
		if path.Base(rel) == store.MetadataFile || strings.HasPrefix(rel, ".git/") {
			continue
		}
		items = append(items, item{remote: file, local: local})
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoFiles, sk.ID)
	}
	total := len(items)
	written := 0
	for i, it := range items {
		file, local := it.remote, it.local
		body, err := s.remote.FetchRaw(ctx, sk.RepoOwner, sk.RepoName, sk.Branch, file)
		if err != nil {
			return written, fmt.Errorf("INS_DOWNLOAD: %s: %w", file, err)
		}
		target := filepath.Join(dst, local)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("INS_WRITE: %w", err)
		}
		if err := os.WriteFile(target, body, 0o644); err != nil {
			return written, fmt.Errorf("INS_WRITE: %w", err)
		}
		written++
		if progress != nil {
			progress(i+1, total)
		}
	}
	return written, nil
}

// materialize exposes backing at tool as a link, or as a copy when links are
// unavailable or disabled.
func (s *Service) materialize(ctx context.Context, id, backing, tool, toolDir string) (string, error) {
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return "", err
	}
	if err := s.clearToolPath(id, tool); err != nil {
		return "", err
	}
	useLink := s.linkMode == config.LinkModeLink || (s.linkMode == config.LinkModeAuto && s.linksSupported())
	if useLink {
		err := linkDir(backing, tool)
		if err == nil {
			return ModeLink, nil
		}
		if s.linkMode == config.LinkModeLink {
			return "", fmt.Errorf("INS_LINK: %w", err)
		}
		logger.G(ctx).WithError(err).Debug("link failed, falling back to copy")
	}
	if err := fsutil.CopyDir(backing, tool, nil); err != nil {
		_ = os.RemoveAll(tool)
		return "", fmt.Errorf("INS_COPY: %w", err)
	}
	return ModeCopy, nil
}

// clearToolPath removes what a previous install left at tool: a link, or a
// copy whose metadata names the same skill. Anything else is refused.
func (s *Service) clearToolPath(id, tool string) error {
	if !fsutil.Exists(tool) {
		return nil
	}
	if isLink(tool) {
		return removeLink(tool)
	}
	if owned(tool, id) {
		return fsutil.RemoveAllRetry(tool)
	}
	return fmt.Errorf("INS_CONFLICT: %s exists and does not belong to %s", tool, id)
}

func (s *Service) linksSupported() bool {
	s.probeOnce.Do(func() { s.canLink = s.probe() })
	return s.canLink
}

// owned reports whether dir is a real directory whose metadata names id.
func owned(dir, id string) bool {
	info, err := os.Lstat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	meta, err := store.LoadMetadata(dir)
	return err == nil && meta.SkillID == id
}

// UninstallResult reports what Uninstall removed. Nothing to remove is not
// an error; Warning explains it instead.
type UninstallResult struct {
	ID      string   `json:"id"`
	Removed []string `json:"removed,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

func (s *Service) Uninstall(ctx context.Context, id string, t Target) (UninstallResult, error) {
	release, err := s.locks.acquire(id)
	if err != nil {
		return UninstallResult{}, err
	}
	defer release()
	ctx, op := s.begin(ctx, "uninstall", id)
	res, err := s.uninstall(ctx, id, t)
	op.Done(err, map[string]string{"removed": strings.Join(res.Removed, ",")})
	return res, err
}

func (s *Service) uninstall(ctx context.Context, id string, t Target) (UninstallResult, error) {
	log := logger.G(ctx).WithField("skill", id)
	res := UninstallResult{ID: id}
	backing, tool := t.backingPath(id), t.toolPath(id)

	if t.dual() {
		switch {
		case isLink(tool):
			if err := removeLink(tool); err != nil {
				return res, fmt.Errorf("INS_UNLINK: %w", err)
			}
			res.Removed = append(res.Removed, tool)
		case owned(tool, id):
			if err := fsutil.RemoveAllRetry(tool); err != nil {
				return res, fmt.Errorf("INS_REMOVE: %w", err)
			}
			res.Removed = append(res.Removed, tool)
		case fsutil.Exists(tool):
			log.WithField("path", tool).Warn("leaving unrelated directory in place")
		}
	}

	if info, err := os.Lstat(backing); err == nil {
		// Without a backing store the directory lives among the user's own.
		if !t.dual() && !owned(backing, id) {
			log.WithField("path", backing).Warn("leaving unrelated directory in place")
			res.Warning = id + " is not installed"
			return res, nil
		}
		if !info.IsDir() {
			return res, fmt.Errorf("INS_REMOVE: %s is not a directory", backing)
		}
		if err := fsutil.RemoveAllRetry(backing); err != nil {
			return res, fmt.Errorf("INS_REMOVE: %w", err)
		}
		res.Removed = append(res.Removed, backing)
	}

	if len(res.Removed) == 0 {
		res.Warning = id + " is not installed"
		log.Info(res.Warning)
	}
	return res, nil
}

// Update replaces an installed skill with the latest files. The previous
// copy is kept aside until the new install succeeds and is put back if it
// fails.
func (s *Service) Update(ctx context.Context, sk skill.Skill, t Target, progress Progress) (Result, error) {
	release, err := s.locks.acquire(sk.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()
	ctx, op := s.begin(ctx, "update", sk.ID)
	res, err := s.replace(ctx, sk, t, progress)
	op.Done(err, map[string]string{"revision": res.Revision})
	return res, err
}

func (s *Service) replace(ctx context.Context, sk skill.Skill, t Target, progress Progress) (Result, error) {
	log := logger.G(ctx).WithField("skill", sk.ID)
	if !sk.HasProvenance() {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingProvenance, sk.ID)
	}
	backing := t.backingPath(sk.ID)
	if !fsutil.Exists(backing) || isLink(backing) {
		return s.install(ctx, sk, t, progress)
	}
	aside := backing + ".old-" + uuid.NewString()[:8]
	if err := os.Rename(backing, aside); err != nil {
		return Result{}, fmt.Errorf("INS_BACKUP: %w", err)
	}
	res, err := s.install(ctx, sk, t, progress)
	if err != nil {
		if rerr := os.Rename(aside, backing); rerr != nil {
			log.WithError(rerr).WithField("path", aside).Error("could not restore previous version")
		}
		return Result{}, err
	}
	if err := fsutil.RemoveAllRetry(aside); err != nil {
		log.WithError(err).WithField("path", aside).Warn("previous version left on disk")
	}
	return res, nil
}

// RestoreOfficial discards local edits. It reverts through the local
// repository when one exists and reinstalls otherwise.
func (s *Service) RestoreOfficial(ctx context.Context, sk skill.Skill, t Target, progress Progress) (Result, error) {
	release, err := s.locks.acquire(sk.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()
	ctx, op := s.begin(ctx, "restore", sk.ID)

	backing, tool := t.backingPath(sk.ID), t.toolPath(sk.ID)
	dir := tool
	if !fsutil.Exists(dir) {
		dir = backing
	}
	if hasRepo(dir) {
		err := s.git.restore(ctx, dir)
		if err == nil {
			res := Result{ID: sk.ID, Path: backing, Restored: true}
			if meta, merr := store.LoadMetadata(dir); merr == nil {
				res.Revision = meta.InstalledVersion
			}
			op.Done(nil, map[string]string{"method": "vcs"})
			return res, nil
		}
		logger.G(ctx).WithError(err).WithField("skill", sk.ID).Warn("restore through local repository failed, reinstalling")
		op.Step("vcs-restore-failed", err.Error())
	}
	if _, err := s.uninstall(ctx, sk.ID, t); err != nil {
		op.Done(err, nil)
		return Result{}, err
	}
	res, err := s.install(ctx, sk, t, progress)
	op.Done(err, map[string]string{"method": "reinstall"})
	return res, err
}

// CheckLocalModified reports whether files under dir differ from the
// installed snapshot. Missing tracking reads as unmodified.
func (s *Service) CheckLocalModified(ctx context.Context, dir string) bool {
	modified, err := s.git.modified(ctx, dir)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", dir).Debug("modification check failed")
		return false
	}
	return modified
}
