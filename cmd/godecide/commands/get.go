package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/godecide/internal/cli"
	"github.com/TimurManjosov/godecide/internal/client"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a rule set",
	Long: `Get details of a specific rule set.

Examples:
  godecide get chip-selection --env prod
  godecide get chip-selection --env prod --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		// Get environment configuration
		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		ctx := context.Background()
		rs, err := c.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to get rule set: %w", err)
		}

		if !quiet {
			return cli.PrintRuleSet(rs, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
