package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/godecide/internal/cli"
	"github.com/TimurManjosov/godecide/internal/client"
	"github.com/TimurManjosov/godecide/internal/engine"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rule sets from a file",
	Long: `Import rule sets from a YAML or JSON export file.

Examples:
  godecide import rulesets.yaml --env prod
  godecide import rulesets.yaml --env staging --dry-run
  godecide import rulesets.yaml --env prod --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		var importData ExportFormat
		if err := yaml.Unmarshal(data, &importData); err != nil {
			return fmt.Errorf("failed to parse file: %w", err)
		}

		if len(importData.RuleSets) == 0 {
			return fmt.Errorf("no rule sets found in file")
		}

		if verbose {
			fmt.Printf("Found %d rule set(s) to import\n", len(importData.RuleSets))
		}

		// Dry run mode - validate documents and show what would be imported
		if importDryRun {
			fmt.Println("Dry run mode - the following rule sets would be imported:")
			for _, rs := range importData.RuleSets {
				document, err := marshalDocument(rs.Document)
				if err != nil {
					return fmt.Errorf("rule set '%s': %w", rs.Key, err)
				}
				status := "valid"
				if err := engine.ValidateJSON(document); err != nil {
					status = fmt.Sprintf("INVALID: %v", err)
				}
				fmt.Printf("  - %s (env: %s, %s)\n", rs.Key, rs.Env, status)
			}
			return nil
		}

		// Get environment configuration
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		ctx := context.Background()

		successCount := 0
		errorCount := 0

		for _, rs := range importData.RuleSets {
			// Use the environment from the entry or override with --env flag
			targetEnv := rs.Env
			if effectiveEnv != "" {
				targetEnv = effectiveEnv
			}

			document, err := marshalDocument(rs.Document)
			if err != nil {
				return fmt.Errorf("rule set '%s': %w", rs.Key, err)
			}

			if verbose {
				fmt.Printf("Importing rule set: %s\n", rs.Key)
			}

			if _, err := c.Push(ctx, client.PushParams{
				Key:         rs.Key,
				Description: rs.Description,
				Env:         targetEnv,
				Document:    document,
			}); err != nil {
				errorCount++
				fmt.Fprintf(os.Stderr, "Failed to import rule set '%s': %v\n", rs.Key, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
			} else {
				successCount++
			}
		}

		if !quiet {
			fmt.Printf("Import complete: %d succeeded, %d failed\n", successCount, errorCount)
		}

		if errorCount > 0 && !importForce {
			return fmt.Errorf("import completed with errors")
		}

		return nil
	},
}

// marshalDocument converts the YAML-decoded document value back to JSON for
// the API. YAML decodes maps as map[string]any, which marshals cleanly.
func marshalDocument(document any) (json.RawMessage, error) {
	data, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON-convertible: %w", err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
