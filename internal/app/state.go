package app

import (
	"context"
	"time"

	"skillsync/internal/config"
	"skillsync/internal/installer"
	"skillsync/internal/logger"
	"skillsync/internal/skill"
)

// SkillView is one catalog record joined with its installation state.
type SkillView struct {
	skill.Skill
	IsInstalled       bool   `json:"isInstalled"`
	InstalledRevision string `json:"installedRevision,omitempty"`
	HasUpdate         bool   `json:"hasUpdate"`
	IsLocallyModified bool   `json:"isLocallyModified"`
	InstalledPath     string `json:"installedPath,omitempty"`
}

// State is the snapshot pushed to a presentation layer after every command.
type State struct {
	Skills           []SkillView  `json:"skills"`
	Degraded         bool         `json:"degraded"`
	RateLimited      bool         `json:"rateLimited,omitempty"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	Agent            string       `json:"agent"`
	Scope            config.Scope `json:"scope"`
	Language         string       `json:"language"`
	ShowAICategories bool         `json:"showAiCategories"`
	// TargetAvailable is false when the agent or project is missing; every
	// record then reads as not installed.
	TargetAvailable bool `json:"targetAvailable"`
}

// State fetches the catalog and joins the installation state of the
// selected agent and scope. Only an unknown agent is an error.
func (s *Service) State(ctx context.Context, force bool) (State, error) {
	res := s.Catalog.FetchPackageList(ctx, force)
	st := State{
		Degraded:         res.Degraded,
		RateLimited:      res.RateLimited,
		UpdatedAt:        res.UpdatedAt,
		Agent:            s.Config.UI.Agent,
		Scope:            s.Scope(),
		Language:         s.Config.UI.Language,
		ShowAICategories: s.Config.UI.ShowAICategories,
	}
	if res.Err != nil {
		logger.G(ctx).WithError(res.Err).Debug("catalog degraded")
	}

	t, err := s.Target(false)
	if err != nil {
		return State{}, err
	}
	st.TargetAvailable = t.ToolDir != ""

	installed := map[string]installer.Installed{}
	var updates map[string]installer.UpdateInfo
	if st.TargetAvailable {
		list, err := s.Installer.ScanInstalled(ctx, t)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("scan installed skills failed")
		}
		for _, in := range list {
			installed[in.ID] = in
		}
		updates = installer.UpdatesFrom(list, res.Skills)
	}

	skills := s.enrich.apply(ctx, res.Skills, st.Language, st.ShowAICategories)
	st.Skills = make([]SkillView, 0, len(skills))
	for _, sk := range skills {
		view := SkillView{Skill: sk}
		if in, ok := installed[sk.ID]; ok {
			view.IsInstalled = true
			view.InstalledRevision = in.Metadata.InstalledVersion
			view.IsLocallyModified = in.Modified
			view.InstalledPath = in.Path
			view.HasUpdate = updates[sk.ID].HasUpdate
		}
		st.Skills = append(st.Skills, view)
	}
	return st, nil
}
