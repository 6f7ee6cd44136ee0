package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/godecide/internal/cli"
	"github.com/TimurManjosov/godecide/internal/client"
	"github.com/TimurManjosov/godecide/internal/engine"
	"github.com/TimurManjosov/godecide/internal/rules"
)

var (
	evalParams []string
	evalFile   string
)

var evalCmd = &cobra.Command{
	Use:   "eval [key]",
	Short: "Evaluate a rule set against parameters",
	Long: `Evaluate a rule set against a set of string parameters.

With a key argument the rule set is evaluated on the server. With --file
a local document is evaluated instead, without contacting the server.

Examples:
  godecide eval chip-selection -p device_type=RTD-2000 -p region=cn
  godecide eval --file rules.json -p device_type=RTD-2000
  godecide eval chip-selection -p region=cn --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(evalParams)
		if err != nil {
			return err
		}

		if evalFile != "" {
			return evalLocal(evalFile, params)
		}

		if len(args) != 1 {
			return fmt.Errorf("a rule set key is required unless --file is given")
		}
		return evalRemote(args[0], params)
	},
}

func evalLocal(file string, params rules.Params) error {
	document, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read document file: %w", err)
	}

	result, matched, err := engine.EvaluateJSON(document, params)
	if err != nil {
		return err
	}

	printEvalResult(matched, result.Raw())
	return nil
}

func evalRemote(key string, params rules.Params) error {
	envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
	result, err := c.Evaluate(context.Background(), key, params)
	if err != nil {
		return fmt.Errorf("failed to evaluate rule set: %w", err)
	}

	printEvalResult(result.Matched, result.Result)
	return nil
}

func printEvalResult(matched bool, result json.RawMessage) {
	if quiet {
		return
	}
	if !matched {
		fmt.Println("no match")
		return
	}
	fmt.Println(string(result))
}

// parseParams converts -p key=value pairs into a parameter map.
func parseParams(pairs []string) (rules.Params, error) {
	params := make(rules.Params, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringArrayVarP(&evalParams, "param", "p", nil, "Evaluation parameter (key=value, repeatable)")
	evalCmd.Flags().StringVarP(&evalFile, "file", "f", "", "Evaluate a local document instead of a stored rule set")
}
