package cmd

import (
	"github.com/spf13/cobra"

	"orgaudit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize orgaudit configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure orgaudit for your organization and generates a .orgaudit.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
