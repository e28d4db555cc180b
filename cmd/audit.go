package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"orgaudit/internal/history"
	"orgaudit/internal/policy"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Evaluate governance rules against the cached snapshot",
	Long: `Runs every enabled rule against the cached org snapshot, prints the
violations found, and records the run in the local history database.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().Bool("fetch", false, "fetch a fresh snapshot before auditing")
	auditCmd.Flags().String("fail-on", "", "exit non-zero if a violation at or above this severity exists (warning or error)")
	auditCmd.Flags().Bool("no-record", false, "do not record this run in history")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if doFetch, _ := cmd.Flags().GetBool("fetch"); doFetch {
		if err := fetchSnapshot(cmd.Context(), cfg); err != nil {
			return err
		}
	}

	org, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}

	started := time.Now().UTC()
	engine := policy.NewEngine(cfg.Rules.Enabled)
	violations := engine.Run(newPolicyContext(cfg, org))
	finished := time.Now().UTC()

	printViolations(violations)

	if noRecord, _ := cmd.Flags().GetBool("no-record"); !noRecord {
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		run := &history.Run{Org: cfg.Org, StartedAt: started, FinishedAt: finished}
		store := history.NewStore(database)
		if err := store.RecordRun(cmd.Context(), run, violations); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Run %s recorded\n", run.ID)
		}
	}

	failOn, _ := cmd.Flags().GetString("fail-on")
	if failOn != "" {
		threshold := policy.Severity(failOn)
		if threshold != policy.SeverityWarning && threshold != policy.SeverityError {
			return fmt.Errorf("invalid --fail-on %q: must be warning or error", failOn)
		}
		for i := range violations {
			if violations[i].Descriptor.Severity.Rank() >= threshold.Rank() {
				return fmt.Errorf("found violations at or above severity %s", threshold)
			}
		}
	}
	return nil
}

// printViolations renders the violation table. Hidden-severity findings
// are summarized in a count but not listed.
func printViolations(violations []policy.Violation) {
	var hidden int
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tSEVERITY\tVIOLATION\tASSIGNEES")
	for i := range violations {
		v := &violations[i]
		if v.Descriptor.Severity == policy.SeverityHidden {
			hidden++
			continue
		}
		assignees := "-"
		if logins := v.AssigneeLogins(); len(logins) > 0 {
			assignees = strings.Join(logins, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Descriptor.ID, v.Descriptor.Severity, v.Title, assignees)
	}
	w.Flush()

	fmt.Printf("\n%d violations", len(violations))
	if hidden > 0 {
		fmt.Printf(" (%d hidden)", hidden)
	}
	fmt.Println()
}
