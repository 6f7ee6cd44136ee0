package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/godecide/internal/client"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintRuleSets outputs rule sets in the specified format
func PrintRuleSets(ruleSets []client.RuleSet, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]client.RuleSet{"ruleSets": ruleSets})
	case FormatYAML:
		return printYAML(ruleSets)
	case FormatTable:
		return printTable(ruleSets)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintRuleSet outputs a single rule set in the specified format
func PrintRuleSet(rs *client.RuleSet, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(rs)
	case FormatYAML:
		return printYAML(rs)
	case FormatTable:
		return printTable([]client.RuleSet{*rs})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTable(ruleSets []client.RuleSet) error {
	table := tablewriter.NewWriter(os.Stdout)

	table.Header("Key", "Env", "Rules", "Fallback", "Description", "Updated At")

	for _, rs := range ruleSets {
		ruleCount, hasFallback := documentShape(rs.Document)

		fallback := "no"
		if hasFallback {
			fallback = "yes"
		}

		description := rs.Description
		if len(description) > 40 {
			description = description[:37] + "..."
		}

		table.Append(
			rs.Key,
			rs.Env,
			fmt.Sprintf("%d", ruleCount),
			fallback,
			description,
			rs.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}

// documentShape peeks at a rule set document for table display without
// fully parsing it.
func documentShape(document json.RawMessage) (ruleCount int, hasFallback bool) {
	var doc struct {
		Rules    []json.RawMessage `json:"rules"`
		Fallback json.RawMessage   `json:"fallback"`
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return 0, false
	}
	return len(doc.Rules), len(doc.Fallback) > 0 && string(doc.Fallback) != "null"
}
