package config

// Config is the top-level orgaudit configuration, corresponding to
// .orgaudit.yml. The API token is deliberately absent: it comes from the
// environment only.
type Config struct {
	Org          string       `yaml:"org" koanf:"org"`
	CacheDir     string       `yaml:"cache_dir" koanf:"cache_dir"`
	IssueRepo    string       `yaml:"issue_repo" koanf:"issue_repo"`
	IdentityFile string       `yaml:"identity_file" koanf:"identity_file"`
	ImplicitRead bool         `yaml:"implicit_read" koanf:"implicit_read"`
	IncludeRepos []string     `yaml:"include_repos" koanf:"include_repos"`
	ExcludeRepos []string     `yaml:"exclude_repos" koanf:"exclude_repos"`
	Rules        RulesConfig  `yaml:"rules" koanf:"rules"`
	Server       ServerConfig `yaml:"server" koanf:"server"`
}

// RulesConfig tunes the policy rules.
type RulesConfig struct {
	Enabled        []string `yaml:"enabled" koanf:"enabled"`
	MaxMaintainers int      `yaml:"max_maintainers" koanf:"max_maintainers"`
	MarkerTeams    []string `yaml:"marker_teams" koanf:"marker_teams"`
	StaleAfterDays int      `yaml:"stale_after_days" koanf:"stale_after_days"`
}

// ServerConfig holds the report server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
