package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/godecide/internal/cli"
	"github.com/TimurManjosov/godecide/internal/client"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rule sets",
	Long: `List all rule sets in the specified environment.

Examples:
  godecide list --env prod
  godecide list --env prod --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get environment configuration
		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		ctx := context.Background()
		ruleSets, err := c.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rule sets: %w", err)
		}

		if !quiet {
			if len(ruleSets) == 0 {
				fmt.Println("No rule sets found")
				return nil
			}
			return cli.PrintRuleSets(ruleSets, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
