package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .orgaudit.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to orgaudit! Let's configure your organization audit.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Organization.
	orgPrompt := promptui.Prompt{
		Label: "GitHub organization to audit",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("organization is required")
			}
			return nil
		},
	}
	org, err := orgPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	cfg.Org = strings.TrimSpace(org)

	// 2. Tracking-issue repo.
	issuePrompt := promptui.Prompt{
		Label:   "Repo for tracking issues (owner/repo, blank to skip syncing)",
		Default: cfg.Org + "/org-audit",
		Validate: func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil
			}
			parts := strings.Split(s, "/")
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return fmt.Errorf("must be owner/repo")
			}
			return nil
		},
	}
	issueRepo, err := issuePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("issue repo: %w", err)
	}
	cfg.IssueRepo = strings.TrimSpace(issueRepo)

	// 3. Maintainer ceiling.
	maxPrompt := promptui.Prompt{
		Label:   "Maximum maintainers per team",
		Default: strconv.Itoa(cfg.Rules.MaxMaintainers),
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 1 {
				return fmt.Errorf("must be a positive number")
			}
			return nil
		},
	}
	maxStr, err := maxPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("max maintainers: %w", err)
	}
	cfg.Rules.MaxMaintainers, _ = strconv.Atoi(strings.TrimSpace(maxStr))

	// 4. Implicit read.
	implicitPrompt := promptui.Select{
		Label: "Do org members implicitly get read access to every repo?",
		Items: []string{"no", "yes"},
	}
	implicitIdx, _, err := implicitPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("implicit read: %w", err)
	}
	cfg.ImplicitRead = implicitIdx == 1

	// 5. Marker teams.
	markerPrompt := promptui.Prompt{
		Label:   "Marker teams (comma-separated, blank for none)",
		Default: "",
	}
	markerStr, err := markerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("marker teams: %w", err)
	}
	cfg.Rules.MarkerTeams = splitAndTrim(markerStr)

	configPath := ".orgaudit.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	fmt.Println("Set ORGAUDIT_TOKEN or GITHUB_TOKEN in your environment before fetching.")
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace,
// dropping empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
