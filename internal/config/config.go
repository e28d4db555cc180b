package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (ORGAUDIT_*). The file may be absent;
// the defaults then apply as-is.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: ORGAUDIT_ORG -> org,
	// ORGAUDIT_SERVER_PORT -> server.port. ORGAUDIT_TOKEN is read by the
	// gh package, never here.
	if err := k.Load(env.Provider("ORGAUDIT_", ".", func(s string) string {
		if s == "ORGAUDIT_TOKEN" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "ORGAUDIT_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Org == "" {
		return fmt.Errorf("org is required")
	}

	if c.IssueRepo != "" {
		parts := strings.Split(c.IssueRepo, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("issue_repo %q must be in owner/repo form", c.IssueRepo)
		}
	}

	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required")
	}

	if c.Rules.MaxMaintainers < 1 {
		return fmt.Errorf("rules.max_maintainers must be at least 1")
	}

	if c.Rules.StaleAfterDays < 0 {
		return fmt.Errorf("rules.stale_after_days must be non-negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}

// SplitIssueRepo returns the owner and repo halves of IssueRepo. Validate
// must have passed first.
func (c *Config) SplitIssueRepo() (owner, repo string) {
	parts := strings.SplitN(c.IssueRepo, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
