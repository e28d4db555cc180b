package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"orgaudit/internal/config"
	"orgaudit/internal/db"
	"orgaudit/internal/graph"
	"orgaudit/internal/permissions"
	"orgaudit/internal/policy"
	"orgaudit/internal/snapshot"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `orgaudit init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `orgaudit init` to recreate it", err)
	}
	return cfg, nil
}

// openDB opens the history database under the cache directory.
func openDB(cfg *config.Config) (*db.DB, error) {
	path := filepath.Join(cfg.CacheDir, "history.db")
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return db.Open(path)
}

// loadSnapshot reads the cached snapshot for the configured org, applies
// the identity file and repo filters, and links it into a graph.
func loadSnapshot(cfg *config.Config) (*graph.Org, error) {
	path := snapshot.CachePath(cfg.CacheDir, cfg.Org)
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w\nRun `orgaudit fetch` first", err)
	}

	if cfg.IdentityFile != "" {
		identities, err := snapshot.LoadIdentities(cfg.IdentityFile)
		if err != nil {
			return nil, err
		}
		snap.ApplyIdentities(identities)
	}

	snap = snap.FilterRepos(cfg.IncludeRepos, cfg.ExcludeRepos)

	org, err := graph.Build(snap)
	if err != nil {
		return nil, fmt.Errorf("linking snapshot: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded snapshot of %s from %s: %d users, %d teams, %d repos\n",
			cfg.Org, snap.FetchedAt.Format(time.RFC3339), len(snap.Users), len(snap.Teams), len(snap.Repos))
	}
	return org, nil
}

// newPolicyContext assembles the rule evaluation context from config.
func newPolicyContext(cfg *config.Config, org *graph.Org) *policy.Context {
	return &policy.Context{
		Org:            org,
		Resolver:       permissions.NewResolver(org, cfg.ImplicitRead),
		MaxMaintainers: cfg.Rules.MaxMaintainers,
		MarkerTeams:    cfg.Rules.MarkerTeams,
		StaleAfter:     time.Duration(cfg.Rules.StaleAfterDays) * 24 * time.Hour,
	}
}
