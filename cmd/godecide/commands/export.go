package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/godecide/internal/cli"
	"github.com/TimurManjosov/godecide/internal/client"
)

var exportOutput string

// ExportRuleSet is one rule set in an export file. The document is held as a
// plain value so YAML output stays readable.
type ExportRuleSet struct {
	Key         string    `yaml:"key" json:"key"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Env         string    `yaml:"env,omitempty" json:"env,omitempty"`
	Document    any       `yaml:"document" json:"document"`
	UpdatedAt   time.Time `yaml:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// ExportFormat represents the structure for exporting rule sets
type ExportFormat struct {
	RuleSets []ExportRuleSet `yaml:"rule_sets" json:"ruleSets"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rule sets to a file",
	Long: `Export all rule sets from the specified environment to a YAML or JSON file.

Examples:
  godecide export --env prod --output rulesets.yaml
  godecide export --env prod --output rulesets.json --format json
  godecide export --env prod > backup.yaml`,
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

		exportData := ExportFormat{RuleSets: make([]ExportRuleSet, 0, len(ruleSets))}
		for _, rs := range ruleSets {
			var document any
			if err := json.Unmarshal(rs.Document, &document); err != nil {
				return fmt.Errorf("rule set '%s' has an unreadable document: %w", rs.Key, err)
			}
			exportData.RuleSets = append(exportData.RuleSets, ExportRuleSet{
				Key:         rs.Key,
				Description: rs.Description,
				Env:         rs.Env,
				Document:    document,
				UpdatedAt:   rs.UpdatedAt,
			})
		}

		// Determine output destination
		var output *os.File
		if exportOutput == "" || exportOutput == "-" {
			output = os.Stdout
		} else {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		// Export based on format
		switch format {
		case "json":
			encoder := json.NewEncoder(output)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			// Default to YAML for export
			encoder := yaml.NewEncoder(output)
			defer encoder.Close()
			encoder.SetIndent(2)
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		default:
			return fmt.Errorf("unsupported export format: %s", format)
		}

		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(os.Stderr, "Successfully exported %d rule set(s) to %s\n", len(ruleSets), exportOutput)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
