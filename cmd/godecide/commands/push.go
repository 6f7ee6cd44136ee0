package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/godecide/internal/cli"
	"github.com/TimurManjosov/godecide/internal/client"
	"github.com/TimurManjosov/godecide/internal/engine"
)

var (
	pushFile        string
	pushDescription string
)

var pushCmd = &cobra.Command{
	Use:   "push <key>",
	Short: "Create or replace a rule set",
	Long: `Create or replace a rule set from a JSON document file.

The document is validated locally before it is sent to the server.

Examples:
  godecide push chip-selection --file rules.json --env prod
  godecide push chip-selection --file rules.json --description "Chip selection rules"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		if pushFile == "" {
			return fmt.Errorf("--file is required")
		}

		document, err := os.ReadFile(pushFile)
		if err != nil {
			return fmt.Errorf("failed to read document file: %w", err)
		}

		// Fail fast on documents the server would reject anyway.
		if err := engine.ValidateJSON(document); err != nil {
			return fmt.Errorf("document is invalid: %w", err)
		}

		// Get environment configuration
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		ctx := context.Background()
		etag, err := c.Push(ctx, client.PushParams{
			Key:         key,
			Description: pushDescription,
			Env:         effectiveEnv,
			Document:    document,
		})
		if err != nil {
			return fmt.Errorf("failed to push rule set: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully pushed rule set '%s' to environment '%s' (etag: %s)\n", key, effectiveEnv, etag)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringVarP(&pushFile, "file", "f", "", "Rule set document file (JSON)")
	pushCmd.Flags().StringVar(&pushDescription, "description", "", "Rule set description")
}
