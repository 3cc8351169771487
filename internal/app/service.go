package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"skillsync/internal/adapter"
	"skillsync/internal/audit"
	"skillsync/internal/catalog"
	"skillsync/internal/config"
	"skillsync/internal/doctor"
	"skillsync/internal/installer"
	"skillsync/internal/logger"
	"skillsync/internal/skill"
	"skillsync/internal/source"
	"skillsync/internal/store"
	syncsvc "skillsync/internal/sync"
)

type Options struct {
	ConfigPath  string
	HTTPClient  *http.Client
	Home        string
	Cwd         string
	ProjectRoot string
	Enricher    Enricher
	Now         func() time.Time
}

type Service struct {
	ConfigPath  string
	Config      config.Config
	StorageRoot string
	SourcesPath string
	Home        string
	ProjectRoot string

	Registry  *source.Registry
	Client    *source.Client
	Catalog   *catalog.Service
	Resolver  *adapter.Resolver
	Installer *installer.Service
	Sync      *syncsvc.Service
	Doctor    *doctor.Service
	Audit     *audit.Logger

	enrich *enrichment
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("CFG_LOGGING: %w", err)
	}

	home := opts.Home
	if home == "" {
		if home, err = os.UserHomeDir(); err != nil {
			return nil, err
		}
	}
	cwd := opts.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			cwd = "."
		}
	}
	projectRoot, err := config.ResolveProjectRoot(opts.ProjectRoot, cwd)
	if err != nil {
		return nil, err
	}

	storageRoot, err := config.ResolveStorageRoot(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureLayout(storageRoot); err != nil {
		return nil, err
	}
	sourcesPath, err := config.ResolveSourcesFile(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := source.LoadRegistry(sourcesPath, config.IsDefaultSourcesFile(cfg), config.Version)
	if err != nil {
		return nil, err
	}

	client := source.NewClient(source.ClientOptions{
		APIBase:    cfg.Network.APIBase,
		RawBase:    cfg.Network.RawBase,
		Token:      cfg.Token(),
		Timeout:    cfg.NetworkTimeout(),
		Attempts:   uint(cfg.Network.RetryAttempts),
		UserAgent:  "skillsync/" + config.Version,
		HTTPClient: opts.HTTPClient,
	})
	cat := catalog.New(registry, source.NewFetcher(client), client, catalog.Options{
		Path: catalog.CachePath(storageRoot),
		Now:  opts.Now,
	})
	auditLog := audit.New(store.AuditPath(storageRoot))
	knownSource := func(id string) bool {
		_, ok := registry.Get(id)
		return ok
	}
	installerSvc := installer.New(installer.Options{
		Remote:      client,
		LinkMode:    cfg.Storage.LinkMode,
		Audit:       auditLog,
		Now:         opts.Now,
		KnownSource: knownSource,
	})

	return &Service{
		ConfigPath:  configPath,
		Config:      cfg,
		StorageRoot: storageRoot,
		SourcesPath: sourcesPath,
		Home:        home,
		ProjectRoot: projectRoot,
		Registry:    registry,
		Client:      client,
		Catalog:     cat,
		Resolver:    adapter.NewResolver(home, projectRoot),
		Installer:   installerSvc,
		Sync:        &syncsvc.Service{Installer: installerSvc},
		Doctor: &doctor.Service{
			ConfigPath:  configPath,
			SourcesPath: sourcesPath,
			CachePath:   cat.Path(),
			Home:        home,
			Agent:       cfg.UI.Agent,
			HasToken:    cfg.Token() != "",
		},
		Audit:  auditLog,
		enrich: newEnrichment(opts.Enricher),
	}, nil
}

func (s *Service) SaveConfig() error {
	return config.Save(s.ConfigPath, s.Config)
}

// Scope is the scope operations currently act on.
func (s *Service) Scope() config.Scope {
	scope, err := config.ParseScope(s.Config.UI.Scope)
	if err != nil {
		return config.ScopeGlobal
	}
	return scope
}

// Target resolves the directories of the selected agent and scope. With
// strict=false an unavailable target yields an empty Target and no error.
func (s *Service) Target(strict bool) (installer.Target, error) {
	agent := s.Config.UI.Agent
	scope := s.Scope()
	dir, err := s.Resolver.Resolve(agent, scope, strict)
	if err != nil || dir == "" {
		return installer.Target{}, err
	}
	t := installer.Target{ToolDir: dir}
	if s.Config.Storage.DualLocation {
		t.StorageDir = store.BackingRoot(s.StorageRoot, agent, string(scope), s.ProjectRoot)
	}
	return t, nil
}

// RequestFullRefresh rebuilds the catalog, skipping revalidation.
func (s *Service) RequestFullRefresh(ctx context.Context) catalog.Result {
	return s.Catalog.FetchPackageList(ctx, true)
}

// Skills returns the catalog. An unexpired cache costs one conditional
// request; an expired one is refreshed.
func (s *Service) Skills(ctx context.Context) []skill.Skill {
	return s.Catalog.FetchPackageList(ctx, false).Skills
}

func (s *Service) lookup(ctx context.Context, id string) (skill.Skill, error) {
	for _, sk := range s.Skills(ctx) {
		if sk.ID == id {
			return sk, nil
		}
	}
	return skill.Skill{}, fmt.Errorf("CAT_UNKNOWN_SKILL: %q is not in the catalog", id)
}

func (s *Service) Install(ctx context.Context, id string, progress installer.Progress) (installer.Result, error) {
	sk, err := s.lookup(ctx, id)
	if err != nil {
		return installer.Result{}, err
	}
	t, err := s.Target(true)
	if err != nil {
		return installer.Result{}, err
	}
	return s.Installer.Install(ctx, sk, t, progress)
}

func (s *Service) Uninstall(ctx context.Context, id string) (installer.UninstallResult, error) {
	t, err := s.Target(true)
	if err != nil {
		return installer.UninstallResult{}, err
	}
	return s.Installer.Uninstall(ctx, id, t)
}

func (s *Service) Update(ctx context.Context, id string, progress installer.Progress) (installer.Result, error) {
	sk, err := s.lookup(ctx, id)
	if err != nil {
		return installer.Result{}, err
	}
	t, err := s.Target(true)
	if err != nil {
		return installer.Result{}, err
	}
	return s.Installer.Update(ctx, sk, t, progress)
}

func (s *Service) RestoreOfficial(ctx context.Context, id string, progress installer.Progress) (installer.Result, error) {
	sk, err := s.lookup(ctx, id)
	if err != nil {
		return installer.Result{}, err
	}
	t, err := s.Target(true)
	if err != nil {
		return installer.Result{}, err
	}
	return s.Installer.RestoreOfficial(ctx, sk, t, progress)
}

// CheckUpdates reports update status for every installed, unmodified skill.
func (s *Service) CheckUpdates(ctx context.Context) (map[string]installer.UpdateInfo, error) {
	t, err := s.Target(true)
	if err != nil {
		return nil, err
	}
	return s.Installer.CheckUpdates(ctx, s.Skills(ctx), t)
}

func (s *Service) SyncAll(ctx context.Context, dryRun bool) (syncsvc.Report, error) {
	t, err := s.Target(true)
	if err != nil {
		return syncsvc.Report{}, err
	}
	return s.Sync.Run(ctx, s.Skills(ctx), t, dryRun)
}

// Reveal returns the directory holding the real files of an installed skill.
func (s *Service) Reveal(id string) (string, error) {
	t, err := s.Target(true)
	if err != nil {
		return "", err
	}
	backing, tool := s.Installer.Paths(id, t)
	for _, dir := range []string{backing, tool} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("INS_NOT_INSTALLED: %s is not installed", id)
}

// EditPath returns the descriptor file to open for editing. The
// agent-visible path is preferred so edits land where the agent reads them.
func (s *Service) EditPath(id string) (string, error) {
	t, err := s.Target(true)
	if err != nil {
		return "", err
	}
	_, tool := s.Installer.Paths(id, t)
	file := filepath.Join(tool, skill.DescriptorFile)
	if _, err := os.Stat(file); err == nil {
		return file, nil
	}
	dir, err := s.Reveal(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, skill.DescriptorFile), nil
}

func (s *Service) ConfigureAccessToken(token string) error {
	config.SetToken(&s.Config, token)
	return s.SaveConfig()
}

func (s *Service) SetLanguage(lang string) error {
	if err := config.SetLanguage(&s.Config, lang); err != nil {
		return err
	}
	return s.SaveConfig()
}

func (s *Service) SetAgentType(id string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if _, ok := adapter.Lookup(id); !ok {
		return fmt.Errorf("%w %q", adapter.ErrUnknownAgent, id)
	}
	if err := config.SetAgent(&s.Config, id); err != nil {
		return err
	}
	s.Doctor.Agent = s.Config.UI.Agent
	return s.SaveConfig()
}

func (s *Service) SetScope(scope string) error {
	if err := config.SetScope(&s.Config, scope); err != nil {
		return err
	}
	return s.SaveConfig()
}

func (s *Service) SetShowAICategories(show bool) error {
	s.Config.UI.ShowAICategories = show
	return s.SaveConfig()
}

// Search ranks catalog entries by fuzzy match against id, name and
// description.
func (s *Service) Search(ctx context.Context, query string) []skill.Skill {
	all := s.Skills(ctx)
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}
	haystack := make([]string, len(all))
	for i, sk := range all {
		haystack[i] = sk.ID + " " + sk.Name + " " + sk.Description
	}
	matches := fuzzy.Find(query, haystack)
	out := make([]skill.Skill, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out
}

// Sources lists the registered sources ordered by id.
func (s *Service) Sources() []source.Descriptor {
	out := s.Registry.All()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RepairLinks re-creates agent-visible links whose backing copy survived.
func (s *Service) RepairLinks(ctx context.Context) ([]string, error) {
	t, err := s.Target(true)
	if err != nil {
		return nil, err
	}
	return s.Installer.Repair(ctx, t)
}

func (s *Service) DoctorRun(ctx context.Context) doctor.Report {
	return s.Doctor.Run(ctx)
}

// Hint suggests a fix for errors the user can act on.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, adapter.ErrToolNotInstalled):
		return "install the agent first, or pick another one with `skillsync agent <id>`"
	case errors.Is(err, adapter.ErrNoProject):
		return "run inside a project directory, pass --project, or switch to `skillsync scope global`"
	case errors.Is(err, adapter.ErrUnknownAgent):
		return "known agents: " + strings.Join(adapter.IDs(), ", ")
	case errors.Is(err, source.ErrRateLimited):
		return "configure an access token with `skillsync token <token>`"
	case errors.Is(err, installer.ErrBusy):
		return "another operation on this skill is still running; retry when it finishes"
	case errors.Is(err, installer.ErrAlreadyInstalled):
		return "use `skillsync update` or `skillsync restore` instead"
	case strings.HasPrefix(err.Error(), "CFG_SOURCES"):
		return "check the sources_file setting in the config"
	}
	return ""
}
