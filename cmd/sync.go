package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orgaudit/internal/gh"
	"orgaudit/internal/policy"
	"orgaudit/internal/reconcile"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile tracking issues with the current violations",
	Long: `Runs the rules against the cached snapshot and makes the tracking-issue
repo match the result: new violations get issues, returned ones are
reopened, fixed ones are closed. Issues closed by a human with the
override label stay closed.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "print the planned issue changes without applying them")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.IssueRepo == "" {
		return fmt.Errorf("issue_repo is not configured; set it in %s", cfgFile)
	}

	org, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}

	engine := policy.NewEngine(cfg.Rules.Enabled)
	violations := engine.Run(newPolicyContext(cfg, org))

	// Hidden findings never reach the tracker.
	visible := violations[:0:0]
	for i := range violations {
		if violations[i].Descriptor.Severity != policy.SeverityHidden {
			visible = append(visible, violations[i])
		}
	}

	token, err := gh.Token()
	if err != nil {
		return err
	}
	owner, repo := cfg.SplitIssueRepo()
	tracker := gh.NewTracker(gh.NewClient(cmd.Context(), token), owner, repo)
	rec := reconcile.NewEngine(tracker)

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		issues, err := tracker.ListIssues(cmd.Context(), rec.MarkerLabel)
		if err != nil {
			return err
		}
		actions, sum := rec.Plan(issues, visible)
		for _, a := range actions {
			fmt.Printf("%s\t%s\n", a.Kind, a.Title)
		}
		fmt.Printf("\nPlan: %s\n", sum)
		return nil
	}

	sum, err := rec.Reconcile(cmd.Context(), visible)
	if err != nil {
		return fmt.Errorf("reconciling %s: %w", cfg.IssueRepo, err)
	}
	fmt.Fprintf(os.Stderr, "Synced %s: %s\n", cfg.IssueRepo, sum)
	return nil
}
