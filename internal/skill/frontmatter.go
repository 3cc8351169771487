package skill

import (
	"bufio"
	"strings"
)

const frontMatterDelimiter = "---"

// Metadata is the recognised subset of a SKILL.md front-matter block.
type Metadata struct {
	Name        string
	Description string
	Category    string
	License     string
}

// Valid reports whether the metadata describes a usable package.
func (m Metadata) Valid() bool {
	return m.Name != "" && m.Description != ""
}

// ParseMetadata extracts the front-matter header from a SKILL.md blob. It
// never fails: text without a well-formed block yields an empty Metadata.
func ParseMetadata(content string) Metadata {
	content = strings.TrimPrefix(content, "\ufeff")
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != frontMatterDelimiter {
		return Metadata{}
	}

	var m Metadata
	closed := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == frontMatterDelimiter {
			closed = true
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = unquote(strings.TrimSpace(value))
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			m.Name = value
		case "description":
			m.Description = value
		case "category":
			m.Category = value
		case "license":
			m.License = value
		}
	}
	if !closed {
		return Metadata{}
	}
	return m
}

func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	return v
}
