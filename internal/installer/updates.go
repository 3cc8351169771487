package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"skillsync/internal/logger"
	"skillsync/internal/skill"
	"skillsync/internal/store"
)

// Installed is one skill found in an agent directory.
type Installed struct {
	ID       string         `json:"id"`
	Path     string         `json:"path"`
	Linked   bool           `json:"linked"`
	Modified bool           `json:"modified"`
	Metadata store.Metadata `json:"metadata"`
}

// UpdateInfo compares an installed revision with the latest known one.
type UpdateInfo struct {
	HasUpdate         bool   `json:"hasUpdate"`
	InstalledRevision string `json:"installedVersion"`
	LatestRevision    string `json:"latestVersion"`
}

// ScanInstalled lists the skills present in t.ToolDir by directory scan.
// Entries without metadata predate it: they get a legacy placeholder that
// is written back so later scans see the same record. Only directories named
// after a registered source qualify for a placeholder.
func (s *Service) ScanInstalled(ctx context.Context, t Target) ([]Installed, error) {
	if t.ToolDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(t.ToolDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log := logger.G(ctx)
	var out []Installed
	for _, e := range entries {
		id, ok := skill.IDFromDirName(e.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(t.ToolDir, e.Name())
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		meta, err := store.LoadMetadata(dir)
		src, _, _ := skill.SplitID(id)
		switch {
		case errors.Is(err, os.ErrNotExist) && !s.known(src):
			log.WithField("dir", e.Name()).Debug("directory of an unknown source, skipped")
			continue
		case errors.Is(err, os.ErrNotExist):
			meta = store.Metadata{
				SkillID:          id,
				InstalledVersion: store.LegacyVersion,
				InstalledAt:      s.now().UTC(),
				Source:           src,
			}
			if err := store.SaveMetadata(dir, meta); err != nil {
				log.WithError(err).WithField("skill", id).Warn("could not persist legacy metadata")
			}
		case err != nil:
			log.WithError(err).WithField("skill", id).Warn("unreadable metadata, skipping")
			continue
		}
		out = append(out, Installed{
			ID:       id,
			Path:     dir,
			Linked:   isLink(dir),
			Modified: s.CheckLocalModified(ctx, dir),
			Metadata: meta,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CheckUpdates maps every installed, unmodified skill to its update status.
// Legacy installs and skills with an unknown latest revision never report
// an update.
func (s *Service) CheckUpdates(ctx context.Context, all []skill.Skill, t Target) (map[string]UpdateInfo, error) {
	installed, err := s.ScanInstalled(ctx, t)
	if err != nil {
		return nil, err
	}
	return UpdatesFrom(installed, all), nil
}

// UpdatesFrom is CheckUpdates over an existing scan.
func UpdatesFrom(installed []Installed, all []skill.Skill) map[string]UpdateInfo {
	latest := make(map[string]string, len(all))
	for _, sk := range all {
		latest[sk.ID] = sk.LatestRevision
	}
	out := make(map[string]UpdateInfo, len(installed))
	for _, in := range installed {
		if in.Modified {
			continue
		}
		info := UpdateInfo{
			InstalledRevision: in.Metadata.InstalledVersion,
			LatestRevision:    latest[in.ID],
		}
		info.HasUpdate = !in.Metadata.IsLegacy() &&
			info.LatestRevision != "" &&
			info.InstalledRevision != info.LatestRevision
		out[in.ID] = info
	}
	return out
}
