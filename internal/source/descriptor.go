package source

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"skillsync/internal/skill"
)

// Layout says where packages live below a root path.
type Layout string

const (
	// LayoutSubdirectory: each entry under the root path is a package dir.
	LayoutSubdirectory Layout = "subdirectory"
	// LayoutRoot: the listed root entries are packages addressed by bare name.
	LayoutRoot Layout = "root"
)

// Descriptor is one repository packages are discovered in.
type Descriptor struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Owner       string      `json:"owner" yaml:"owner"`
	Repo        string      `json:"repo" yaml:"repo"`
	Branch      string      `json:"branch,omitempty" yaml:"branch,omitempty"`
	Paths       Paths       `json:"path,omitempty" yaml:"path,omitempty"`
	Layout      Layout      `json:"layout,omitempty" yaml:"layout,omitempty"`
	ExcludeDirs []string    `json:"excludeDirs,omitempty" yaml:"excludeDirs,omitempty"`
	Theme       skill.Theme `json:"theme" yaml:"theme"`
	MinVersion  string      `json:"minVersion,omitempty" yaml:"minVersion,omitempty"`
}

// Paths accepts either a single path or a list of paths.
type Paths []string

func (p *Paths) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*p = Paths{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("path must be a string or a list of strings")
	}
	*p = many
	return nil
}

func (p *Paths) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = Paths{node.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*p = many
		return nil
	default:
		return fmt.Errorf("line %d: path must be a string or a list of strings", node.Line)
	}
}

// Roots returns the cleaned root paths; an empty root is the repository root.
func (d Descriptor) Roots() []string {
	if len(d.Paths) == 0 {
		return []string{""}
	}
	out := make([]string, 0, len(d.Paths))
	for _, p := range d.Paths {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "." {
			p = ""
		}
		out = append(out, p)
	}
	return out
}

// RelativePath builds the package path within the repository.
func (d Descriptor) RelativePath(root, dir string) string {
	if d.Layout == LayoutRoot || root == "" {
		return dir
	}
	return path.Join(root, dir)
}

func (d Descriptor) normalize() Descriptor {
	d.ID = strings.TrimSpace(d.ID)
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Branch == "" {
		d.Branch = "main"
	}
	if d.Layout == "" {
		d.Layout = LayoutSubdirectory
	}
	return d
}

func (d Descriptor) validate() error {
	if !skill.ValidSourceID(d.ID) {
		return fmt.Errorf("SRC_CONFIG: invalid source id %q", d.ID)
	}
	if d.Owner == "" || d.Repo == "" {
		return fmt.Errorf("SRC_CONFIG: source %q requires owner and repo", d.ID)
	}
	switch d.Layout {
	case LayoutSubdirectory, LayoutRoot:
	default:
		return fmt.Errorf("SRC_CONFIG: source %q has unknown layout %q", d.ID, d.Layout)
	}
	return nil
}
