package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"skillsync/internal/logger"
	"skillsync/internal/skill"
)

// packageParallelism bounds concurrent per-package requests within a source.
const packageParallelism = 8

// Remote is the subset of Client a Fetcher uses.
type Remote interface {
	ListDir(ctx context.Context, owner, repo, dir, ref string) ([]Entry, error)
	FetchRaw(ctx context.Context, owner, repo, ref, file string) ([]byte, error)
	LatestCommit(ctx context.Context, owner, repo, file, ref string) (Commit, error)
}

// Fetcher crawls one source into package records.
type Fetcher struct {
	remote Remote
}

func NewFetcher(remote Remote) *Fetcher {
	return &Fetcher{remote: remote}
}

type candidate struct {
	dir     string
	relPath string
}

// Fetch lists every package of desc. A listing failure fails the source;
// packages whose descriptor cannot be fetched or parsed are omitted. When the
// rate limit cut some per-package requests short, the packages gathered so
// far are returned together with an error wrapping ErrRateLimited.
func (f *Fetcher) Fetch(ctx context.Context, desc Descriptor) ([]skill.Skill, error) {
	log := logger.G(ctx).WithField("source", desc.ID)

	var candidates []candidate
	seen := map[string]bool{}
	for _, root := range desc.Roots() {
		entries, err := f.remote.ListDir(ctx, desc.Owner, desc.Repo, root, desc.Branch)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() || excluded(desc.ExcludeDirs, e.Name) {
				continue
			}
			// A ':' in the name would not survive the id to directory mapping.
			if strings.Contains(e.Name, ":") {
				log.WithField("dir", e.Name).Debug("directory name cannot form an id, skipped")
				continue
			}
			// Later roots cannot shadow an id already produced.
			if seen[e.Name] {
				log.WithField("dir", e.Name).Debug("duplicate package directory ignored")
				continue
			}
			seen[e.Name] = true
			candidates = append(candidates, candidate{dir: e.Name, relPath: desc.RelativePath(root, e.Name)})
		}
	}

	var (
		mu      sync.Mutex
		limited int
		out     = make([]skill.Skill, 0, len(candidates))
	)
	var g errgroup.Group
	g.SetLimit(packageParallelism)
	for _, c := range candidates {
		g.Go(func() error {
			rec, rateLimited, err := f.fetchOne(ctx, desc, c)
			mu.Lock()
			defer mu.Unlock()
			if rateLimited {
				limited++
			}
			if err != nil {
				log.WithError(err).WithField("skill", c.dir).Debug("package omitted")
				return nil
			}
			out = append(out, rec)
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limited > 0 {
		return out, fmt.Errorf("SRC_PARTIAL: %d of %d packages incomplete: %w", limited, len(candidates), ErrRateLimited)
	}
	return out, nil
}

// fetchOne builds one record. rateLimited reports that a request was refused
// by the rate limit; a refused revision query still yields the record.
func (f *Fetcher) fetchOne(ctx context.Context, desc Descriptor, c candidate) (rec skill.Skill, rateLimited bool, err error) {
	body, err := f.remote.FetchRaw(ctx, desc.Owner, desc.Repo, desc.Branch, path.Join(c.relPath, skill.DescriptorFile))
	if err != nil {
		return skill.Skill{}, errors.Is(err, ErrRateLimited), err
	}
	meta := skill.ParseMetadata(string(body))
	if !meta.Valid() {
		return skill.Skill{}, false, errInvalidDescriptor
	}
	rec = skill.Skill{
		ID:           skill.ID(desc.ID, c.dir),
		Name:         meta.Name,
		Description:  meta.Description,
		Category:     skill.ResolveCategory(meta.Category, meta.Name, meta.Description),
		License:      meta.License,
		Theme:        desc.Theme,
		SourceID:     desc.ID,
		RepoOwner:    desc.Owner,
		RepoName:     desc.Repo,
		Branch:       desc.Branch,
		RelativePath: c.relPath,
	}
	commit, err := f.remote.LatestCommit(ctx, desc.Owner, desc.Repo, c.relPath, desc.Branch)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("skill", rec.ID).Debug("revision unknown")
		return rec, errors.Is(err, ErrRateLimited), nil
	}
	rec.LatestRevision = commit.Short()
	rec.LatestRevisionAt = commit.Date
	return rec, false, nil
}

var errInvalidDescriptor = errors.New("SRC_DESCRIPTOR: missing name or description")

func excluded(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
