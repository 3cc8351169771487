package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"skillsync/internal/fsutil"
	"skillsync/internal/logger"
	"skillsync/internal/skill"
	"skillsync/internal/store"
)

// Repair re-exposes backing directories whose agent-visible path has gone
// missing or points nowhere. It returns the ids that were fixed. Without a
// backing store there is nothing to repair.
func (s *Service) Repair(ctx context.Context, t Target) ([]string, error) {
	if !t.dual() {
		return nil, nil
	}
	entries, err := os.ReadDir(t.StorageDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var fixed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, ok := skill.IDFromDirName(e.Name())
		if !ok {
			continue
		}
		backing := filepath.Join(t.StorageDir, e.Name())
		meta, err := store.LoadMetadata(backing)
		if err != nil || meta.SkillID != id {
			continue
		}
		tool := t.toolPath(id)
		if _, err := os.Stat(tool); err == nil {
			continue
		}
		if fsutil.Exists(tool) && !isLink(tool) {
			continue
		}
		release, err := s.locks.acquire(id)
		if err != nil {
			continue
		}
		mode, err := s.materialize(ctx, id, backing, tool, t.ToolDir)
		release()
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skill", id).Warn("repair failed")
			continue
		}
		logger.G(ctx).WithField("skill", id).WithField("mode", mode).Info("repaired agent path")
		fixed = append(fixed, id)
	}
	return fixed, nil
}
