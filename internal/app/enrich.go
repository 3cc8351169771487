package app

import (
	"context"
	"sync"
	"time"

	"skillsync/internal/logger"
	"skillsync/internal/skill"
)

// EnrichTimeout bounds a single enrichment call.
const EnrichTimeout = 10 * time.Second

// Enrichment is presentation data produced outside the core.
type Enrichment struct {
	Description string
	Category    string
}

// Enricher translates a description and suggests a category for one skill.
type Enricher interface {
	Enrich(ctx context.Context, id, description, lang string) (Enrichment, error)
}

type enrichment struct {
	provider Enricher
	timeout  time.Duration

	mu    sync.Mutex
	cache map[string]Enrichment
}

func newEnrichment(provider Enricher) *enrichment {
	return &enrichment{provider: provider, timeout: EnrichTimeout, cache: map[string]Enrichment{}}
}

// apply fills the enrichment fields of records that lack them. A failed or
// slow provider leaves the original text; failures are not cached.
func (e *enrichment) apply(ctx context.Context, skills []skill.Skill, lang string, categories bool) []skill.Skill {
	if e == nil || e.provider == nil || (lang == "en" && !categories) {
		return skills
	}
	out := make([]skill.Skill, len(skills))
	copy(out, skills)
	for i := range out {
		sk := &out[i]
		res, ok := e.lookup(ctx, sk.ID, sk.Description, lang)
		if !ok {
			continue
		}
		if lang != "en" && sk.TranslatedDescription == "" {
			sk.TranslatedDescription = res.Description
		}
		if categories && sk.AICategory == "" {
			sk.AICategory = res.Category
		}
	}
	return out
}

func (e *enrichment) lookup(ctx context.Context, id, description, lang string) (Enrichment, bool) {
	key := id + "|" + lang
	e.mu.Lock()
	res, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		return res, true
	}

	type outcome struct {
		res Enrichment
		err error
	}
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ch := make(chan outcome, 1)
	go func() {
		r, err := e.provider.Enrich(cctx, id, description, lang)
		ch <- outcome{r, err}
	}()
	var out outcome
	select {
	case out = <-ch:
	case <-cctx.Done():
		logger.G(ctx).WithField("skill", id).Debug("enrichment timed out")
		return Enrichment{}, false
	}
	if out.err != nil {
		logger.G(ctx).WithError(out.err).WithField("skill", id).Debug("enrichment failed")
		return Enrichment{}, false
	}
	res = out.res
	e.mu.Lock()
	e.cache[key] = res
	e.mu.Unlock()
	return res, true
}
