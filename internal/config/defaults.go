package config

// DefaultConfig returns a Config with sensible defaults. The org and
// issue repo have no defaults and must be set explicitly.
func DefaultConfig() *Config {
	return &Config{
		CacheDir:     ".orgaudit/cache",
		ImplicitRead: false,
		Rules: RulesConfig{
			MaxMaintainers: 5,
			StaleAfterDays: 365,
		},
		Server: ServerConfig{
			Port:            8080,
			AllowAllOrigins: false,
		},
	}
}
