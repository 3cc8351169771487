// Package catalog aggregates every configured source into one package list
// and keeps it in an integrity-checked on-disk cache with conditional
// revalidation and tiered fallback.
package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"skillsync/internal/logger"
	"skillsync/internal/skill"
	"skillsync/internal/source"
)

// DefaultMaxAge is the freshness window of a full refresh.
const DefaultMaxAge = 24 * time.Hour

// Fetcher produces the packages of one source. It may return packages
// together with an error when the listing is incomplete.
type Fetcher interface {
	Fetch(ctx context.Context, desc source.Descriptor) ([]skill.Skill, error)
}

// Revalidator performs the cheap conditional request against the reference
// source. It returns source.ErrNotModified when etag still matches.
type Revalidator interface {
	Revalidate(ctx context.Context, owner, repo, branch, etag string) (string, error)
}

// Result is the outcome of FetchPackageList. Err carries the per-source
// failures of a degraded result and is informational only.
type Result struct {
	Skills      []skill.Skill
	Degraded    bool
	RateLimited bool
	FromCache   bool
	UpdatedAt   time.Time
	Err         error
}

type Options struct {
	// Path of the cache file, usually {storage}/cache/skills.json.
	Path   string
	MaxAge time.Duration
	Now    func() time.Time
}

type Service struct {
	registry    *source.Registry
	sources     []source.Descriptor
	fetcher     Fetcher
	revalidator Revalidator
	path        string
	maxAge      time.Duration
	now         func() time.Time
	group       singleflight.Group
}

func New(reg *source.Registry, fetcher Fetcher, revalidator Revalidator, opts Options) *Service {
	s := &Service{
		registry:    reg,
		sources:     reg.All(),
		fetcher:     fetcher,
		revalidator: revalidator,
		path:        opts.Path,
		maxAge:      opts.MaxAge,
		now:         opts.Now,
	}
	if s.maxAge <= 0 {
		s.maxAge = DefaultMaxAge
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CachePath returns the cache file location.
func CachePath(storageRoot string) string {
	return filepath.Join(storageRoot, "cache", "skills.json")
}

func (s *Service) Path() string { return s.path }

// FetchPackageList returns the aggregated package list. It never fails:
// problems surface as Degraded with the cause in Result.Err. Force skips the
// conditional revalidation and always performs a full refresh.
// Concurrent calls with the same force flag share one refresh.
func (s *Service) FetchPackageList(ctx context.Context, force bool) Result {
	key := "refresh"
	if force {
		key = "force"
	}
	v, _, _ := s.group.Do(key, func() (any, error) {
		return s.fetch(ctx, force), nil
	})
	return v.(Result)
}

func (s *Service) fetch(ctx context.Context, force bool) Result {
	log := logger.G(ctx).WithField("cache", s.path)

	cached, err := LoadEnvelope(s.path)
	hasCache := err == nil
	switch {
	case errors.Is(err, ErrCorrupt):
		log.Warn("cache failed integrity check, ignoring it")
	case err != nil && !errors.Is(err, os.ErrNotExist):
		log.WithError(err).Warn("cache unreadable, ignoring it")
	}

	ref, hasRef := s.reference()
	var freshTag string
	if hasCache && !force && cached.ETag != "" && !cached.Expired(s.now(), s.maxAge) && hasRef {
		tag, err := s.revalidator.Revalidate(ctx, ref.Owner, ref.Repo, ref.Branch, cached.ETag)
		switch {
		case errors.Is(err, source.ErrNotModified):
			log.Debug("catalog unchanged")
			return fromCache(cached, false, nil)
		case err != nil:
			log.WithError(err).Warn("revalidation failed, serving cache")
			res := fromCache(cached, true, err)
			res.RateLimited = errors.Is(err, source.ErrRateLimited)
			return res
		default:
			freshTag = tag
		}
	}

	out := s.refresh(ctx, ref, hasRef && freshTag == "")
	if freshTag != "" {
		out.etag = freshTag
	}
	liveErr, rateLimited := out.err, out.rateLimited
	if len(out.skills) > 0 {
		env := Envelope{LastUpdate: s.now().UTC(), ETag: out.etag, Skills: out.skills}
		if saved, err := SaveEnvelope(s.path, env); err != nil {
			log.WithError(err).Warn("could not persist cache")
		} else {
			env = saved
		}
		return Result{
			Skills:      env.Skills,
			Degraded:    liveErr != nil,
			RateLimited: rateLimited,
			UpdatedAt:   env.LastUpdate,
			Err:         liveErr,
		}
	}

	if liveErr == nil {
		liveErr = errors.New("CAT_EMPTY: no packages returned by any source")
	}
	if hasCache {
		log.WithError(liveErr).Warn("live refresh produced nothing, serving cache")
		res := fromCache(cached, true, liveErr)
		res.RateLimited = rateLimited
		return res
	}
	return Result{Skills: []skill.Skill{}, Degraded: true, RateLimited: rateLimited, Err: liveErr}
}

// refresh fans out to every source. A failing source contributes whatever it
// returned alongside its error and never cancels its siblings.
type refreshOutcome struct {
	skills      []skill.Skill
	etag        string
	err         error
	rateLimited bool
}

func (s *Service) refresh(ctx context.Context, ref source.Descriptor, needTag bool) refreshOutcome {
	var etag string
	if needTag {
		tag, err := s.revalidator.Revalidate(ctx, ref.Owner, ref.Repo, ref.Branch, "")
		if err != nil {
			logger.G(ctx).WithError(err).Debug("no validator token for this refresh")
		} else {
			etag = tag
		}
	}

	perSource := make([][]skill.Skill, len(s.sources))
	var (
		mu     sync.Mutex
		merr   *multierror.Error
		limits bool
		g      errgroup.Group
	)
	for i, desc := range s.sources {
		g.Go(func() error {
			skills, err := s.fetcher.Fetch(ctx, desc)
			perSource[i] = skills
			if err != nil {
				logger.G(ctx).WithError(err).WithField("source", desc.ID).
					WithField("packages", len(skills)).Warn("source fetch failed")
				mu.Lock()
				merr = multierror.Append(merr, &SourceError{SourceID: desc.ID, Err: err})
				if errors.Is(err, source.ErrRateLimited) {
					limits = true
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []skill.Skill
	for _, skills := range perSource {
		all = append(all, skills...)
	}
	return refreshOutcome{skills: all, etag: etag, err: merr.ErrorOrNil(), rateLimited: limits}
}

func (s *Service) reference() (source.Descriptor, bool) {
	return s.registry.Reference()
}

func fromCache(env Envelope, degraded bool, err error) Result {
	return Result{
		Skills:    env.Skills,
		Degraded:  degraded,
		FromCache: true,
		UpdatedAt: env.LastUpdate,
		Err:       err,
	}
}

// SourceError ties a fetch failure to its source.
type SourceError struct {
	SourceID string
	Err      error
}

func (e *SourceError) Error() string { return "source " + e.SourceID + ": " + e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }
