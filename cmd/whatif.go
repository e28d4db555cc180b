package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"orgaudit/internal/graph"
	"orgaudit/internal/permissions"
)

var whatifCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Simulate downgrading or removing a team's repo grants",
	Long: `Answers "what would change if this team's access were lowered": for
every affected member and repo, compares their current effective
permission against the hypothetical one. The graph is never mutated, so
simulations are safe to run repeatedly.`,
	RunE: runWhatIf,
}

func init() {
	whatifCmd.Flags().String("team", "", "team name or slug to downgrade (required)")
	whatifCmd.Flags().String("repo", "", "limit the simulation to one repo")
	whatifCmd.Flags().String("perm", "none", "hypothetical permission (none, read, triage, write, maintain, admin)")
	whatifCmd.Flags().Bool("all", false, "also print accesses that would not change")
	whatifCmd.MarkFlagRequired("team")
	rootCmd.AddCommand(whatifCmd)
}

func runWhatIf(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	org, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}

	teamName, _ := cmd.Flags().GetString("team")
	team := org.TeamByName(teamName)
	if team == nil {
		return fmt.Errorf("no team named %q in %s", teamName, cfg.Org)
	}

	permStr, _ := cmd.Flags().GetString("perm")
	var newPerm *graph.Permission
	if permStr != "none" {
		p, ok := graph.ParsePermission(permStr)
		if !ok {
			return fmt.Errorf("unknown permission %q", permStr)
		}
		newPerm = &p
	}

	repoFilter, _ := cmd.Flags().GetString("repo")
	if repoFilter != "" && org.Repo(repoFilter) == nil {
		return fmt.Errorf("no repo named %q in %s", repoFilter, cfg.Org)
	}

	// Only this team's own grants get rewritten, so those repos bound
	// the simulation.
	repos := make(map[*graph.Repo]bool)
	for _, tg := range team.Grants {
		if repoFilter != "" && tg.Repo.Name != repoFilter {
			continue
		}
		repos[tg.Repo] = true
	}
	if len(repos) == 0 {
		fmt.Printf("Team %s grants no access%s; nothing to simulate.\n", team.FullName(), inRepo(repoFilter))
		return nil
	}

	resolver := permissions.NewResolver(org, cfg.ImplicitRead)
	showAll, _ := cmd.Flags().GetBool("all")

	var changed int
	for _, repo := range org.Repos {
		if !repos[repo] {
			continue
		}
		for _, u := range team.EffectiveMembers() {
			current := resolver.Effective(u, repo)
			res := resolver.WhatIfTeamDowngrade(
				&graph.UserGrant{User: u, Repo: repo, Permission: current},
				team, newPerm)
			if res.IsUnchanged() && !showAll {
				continue
			}
			if !res.IsUnchanged() {
				changed++
			}
			fmt.Println(res)
		}
	}

	fmt.Printf("\n%d accesses would change\n", changed)
	return nil
}

func inRepo(repo string) string {
	if repo == "" {
		return ""
	}
	return " on " + repo
}
