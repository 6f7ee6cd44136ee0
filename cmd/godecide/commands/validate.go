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
	validateFile   string
	validateRemote bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rule set document",
	Long: `Validate a rule set document without storing it.

By default validation runs locally. With --remote the document is sent to
the server's validate endpoint instead.

Examples:
  godecide validate --file rules.json
  godecide validate --file rules.json --remote --env prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateFile == "" {
			return fmt.Errorf("--file is required")
		}

		document, err := os.ReadFile(validateFile)
		if err != nil {
			return fmt.Errorf("failed to read document file: %w", err)
		}

		if validateRemote {
			envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
			if err := c.Validate(context.Background(), document); err != nil {
				return err
			}
		} else if err := engine.ValidateJSON(document); err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("%s is valid\n", validateFile)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Rule set document file (JSON)")
	validateCmd.Flags().BoolVar(&validateRemote, "remote", false, "Validate against the server instead of locally")
}
