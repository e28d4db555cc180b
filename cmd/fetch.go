package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orgaudit/internal/config"
	"orgaudit/internal/gh"
	"orgaudit/internal/progress"
	"orgaudit/internal/snapshot"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Snapshot the organization's members, teams, repos, and grants",
	Long: `Pulls the full permission surface of the configured organization over
the GitHub API and caches it locally. All other commands work off this
cached snapshot, so nothing else needs network access.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return fetchSnapshot(cmd.Context(), cfg)
}

// fetchSnapshot pulls and caches a fresh snapshot. Shared with audit's
// --fetch flag.
func fetchSnapshot(ctx context.Context, cfg *config.Config) error {
	token, err := gh.Token()
	if err != nil {
		return err
	}
	client := gh.NewClient(ctx, token)

	fetcher := gh.NewFetcher(client, progress.NewReporter())
	snap, err := fetcher.Fetch(ctx, cfg.Org)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", cfg.Org, err)
	}

	path := snapshot.CachePath(cfg.CacheDir, cfg.Org)
	if err := snap.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Snapshot of %s saved to %s: %d users, %d teams, %d repos\n",
		cfg.Org, path, len(snap.Users), len(snap.Teams), len(snap.Repos))
	return nil
}
