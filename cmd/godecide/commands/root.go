package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "godecide",
	Short: "CLI tool for managing decision rule sets",
	Long: `Godecide is a command-line tool for managing decision rule sets in the godecide service.

It provides commands for pushing, reading, validating, evaluating, and deleting
rule sets, as well as importing and exporting rule set configurations.

Examples:
  godecide list --env prod
  godecide push chip-selection --file rules.json --env prod
  godecide get chip-selection --env prod
  godecide validate --file rules.json
  godecide eval chip-selection -p device_type=RTD-2000 -p region=cn
  godecide export --env prod --output rulesets.yaml
  godecide import rulesets.yaml --env staging`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the godecide API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
