package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "orgaudit",
	Short: "Permission auditing for GitHub organizations",
	Long: `Orgaudit snapshots a GitHub organization's teams, repos, and grants,
resolves every member's effective permissions, and checks them against
governance rules. Violations can be synced to a tracking-issue repo,
one issue per violation, so findings stay visible until fixed.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".orgaudit.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
