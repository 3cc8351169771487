// Package sync updates every installed skill that has a newer revision
// upstream and no local edits.
package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"skillsync/internal/installer"
	"skillsync/internal/logger"
	"skillsync/internal/skill"
)

// Updater is the part of the installer a sync run needs.
type Updater interface {
	CheckUpdates(ctx context.Context, all []skill.Skill, t installer.Target) (map[string]installer.UpdateInfo, error)
	Update(ctx context.Context, sk skill.Skill, t installer.Target, progress installer.Progress) (installer.Result, error)
}

type Service struct {
	Installer Updater
}

type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type Report struct {
	Checked  int       `json:"checked"`
	Upgraded []string  `json:"upgradedSkills"`
	Pending  []string  `json:"pendingSkills,omitempty"`
	Failed   []Failure `json:"failed,omitempty"`
	DryRun   bool      `json:"dryRun,omitempty"`
}

// Run updates each outdated skill in t one at a time. A failing skill does
// not stop the run; all failures are returned together.
func (s *Service) Run(ctx context.Context, all []skill.Skill, t installer.Target, dryRun bool) (Report, error) {
	if s.Installer == nil {
		return Report{}, fmt.Errorf("SYNC_SETUP: sync dependencies not configured")
	}
	updates, err := s.Installer.CheckUpdates(ctx, all, t)
	if err != nil {
		return Report{}, err
	}
	byID := make(map[string]skill.Skill, len(all))
	for _, sk := range all {
		byID[sk.ID] = sk
	}

	report := Report{Checked: len(updates), DryRun: dryRun}
	ids := make([]string, 0, len(updates))
	for id, info := range updates {
		if info.HasUpdate {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var merr *multierror.Error
	for _, id := range ids {
		if dryRun {
			report.Pending = append(report.Pending, id)
			continue
		}
		if _, err := s.Installer.Update(ctx, byID[id], t, nil); err != nil {
			logger.G(ctx).WithError(err).WithField("skill", id).Warn("update failed")
			report.Failed = append(report.Failed, Failure{ID: id, Error: err.Error()})
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", id, err))
			continue
		}
		report.Upgraded = append(report.Upgraded, id)
	}
	return report, merr.ErrorOrNil()
}
