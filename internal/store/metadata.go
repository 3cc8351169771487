package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skillsync/internal/fsutil"
)

const (
	// MetadataFile sits inside every installed package directory.
	MetadataFile = ".skillsync.json"
	// LegacyVersion marks packages installed before metadata existed.
	LegacyVersion = "legacy"
)

// Metadata is the durable record of one install.
type Metadata struct {
	SkillID          string    `json:"skillId"`
	InstalledVersion string    `json:"installedVersion"`
	InstalledAt      time.Time `json:"installedAt"`
	Source           string    `json:"source"`
	RepoOwner        string    `json:"repoOwner,omitempty"`
	RepoName         string    `json:"repoName,omitempty"`
	SkillPath        string    `json:"skillPath,omitempty"`
	Branch           string    `json:"branch,omitempty"`
	JunctionPath     string    `json:"junctionPath,omitempty"`
}

func (m Metadata) IsLegacy() bool { return m.InstalledVersion == LegacyVersion }

func MetadataPath(dir string) string {
	return filepath.Join(dir, MetadataFile)
}

// LoadMetadata reads the metadata file in dir. A missing file is returned as
// an error satisfying errors.Is(err, os.ErrNotExist).
func LoadMetadata(dir string) (Metadata, error) {
	blob, err := os.ReadFile(MetadataPath(dir))
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	if err := json.Unmarshal(blob, &m); err != nil {
		return Metadata{}, fmt.Errorf("INS_METADATA_PARSE: %s: %w", dir, err)
	}
	return m, nil
}

func SaveMetadata(dir string, m Metadata) error {
	blob, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("INS_METADATA_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(MetadataPath(dir), blob, 0o644)
}
