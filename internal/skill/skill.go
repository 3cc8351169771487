// Package skill holds the unified package record shared by every component,
// its identity scheme, the SKILL.md front-matter parser and the heuristic
// category classifier.
package skill

import "time"

// DescriptorFile is the file every package directory must carry.
const DescriptorFile = "SKILL.md"

// Theme is display styling inherited from the owning source.
type Theme struct {
	Icon     string    `json:"icon,omitempty" yaml:"icon,omitempty"`
	Gradient [2]string `json:"gradient,omitempty" yaml:"gradient,omitempty"`
}

// Skill is one package available from a source. Installation state is not
// part of the record; it is joined in at query time.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	License     string `json:"license,omitempty"`
	Theme       Theme  `json:"theme"`

	SourceID     string `json:"sourceId"`
	RepoOwner    string `json:"repoOwner"`
	RepoName     string `json:"repoName"`
	Branch       string `json:"branch"`
	RelativePath string `json:"skillPath"`

	LatestRevision   string    `json:"latestCommitHash,omitempty"`
	LatestRevisionAt time.Time `json:"latestCommitDate,omitempty"`

	// Owned by the enrichment add-on; passed through untouched.
	TranslatedDescription string `json:"translatedDescription,omitempty"`
	AICategory            string `json:"aiCategory,omitempty"`
}

// HasProvenance reports whether the record carries enough provenance to
// locate its files remotely.
func (s Skill) HasProvenance() bool {
	return s.RepoOwner != "" && s.RepoName != "" && s.RelativePath != ""
}

// DirName is the on-disk directory name for the record.
func (s Skill) DirName() string {
	return SafeDirName(s.ID)
}
