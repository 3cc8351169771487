package source

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"skillsync/internal/fsutil"
	"skillsync/internal/logger"
)

//go:embed default_sources.json
var defaultSources []byte

type document struct {
	Sources []Descriptor `json:"sources" yaml:"sources"`
}

// Registry is the immutable, ordered set of configured sources.
type Registry struct {
	sources []Descriptor
	byID    map[string]Descriptor
}

// NewRegistry validates descriptors. Sources whose minVersion is newer than
// runningVersion are dropped with a warning.
func NewRegistry(descs []Descriptor, runningVersion string) (*Registry, error) {
	r := &Registry{byID: map[string]Descriptor{}}
	for _, d := range descs {
		d = d.normalize()
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("SRC_CONFIG: duplicate source id %q", d.ID)
		}
		if !versionSatisfies(runningVersion, d.MinVersion) {
			logger.L.WithField("source", d.ID).Warnf("source requires version %s, skipping", d.MinVersion)
			continue
		}
		r.byID[d.ID] = d
		r.sources = append(r.sources, d)
	}
	return r, nil
}

// LoadRegistry reads a JSON or YAML sources file. When seedDefault is set and
// the file is missing, the built-in source list is written there first.
func LoadRegistry(path string, seedDefault bool, runningVersion string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && seedDefault {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("SRC_CONFIG: %w", err)
		}
		if err := fsutil.AtomicWrite(path, defaultSources, 0o644); err != nil {
			return nil, fmt.Errorf("SRC_CONFIG: write default sources: %w", err)
		}
		data, err = defaultSources, nil
	}
	if err != nil {
		return nil, fmt.Errorf("CFG_SOURCES: read sources file %s: %w", path, err)
	}
	descs, err := parseDocument(path, data)
	if err != nil {
		return nil, err
	}
	return NewRegistry(descs, runningVersion)
}

func parseDocument(path string, data []byte) ([]Descriptor, error) {
	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("CFG_SOURCES: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("CFG_SOURCES: parse %s: %w", path, err)
		}
	}
	return doc.Sources, nil
}

func versionSatisfies(running, min string) bool {
	if min == "" {
		return true
	}
	r, m := canonical(running), canonical(min)
	if !semver.IsValid(m) || !semver.IsValid(r) {
		return true
	}
	return semver.Compare(r, m) >= 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.sources))
	copy(out, r.sources)
	return out
}

func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Reference returns the source used for cheap catalog revalidation.
func (r *Registry) Reference() (Descriptor, bool) {
	if len(r.sources) == 0 {
		return Descriptor{}, false
	}
	return r.sources[0], true
}

func (r *Registry) Len() int { return len(r.sources) }
