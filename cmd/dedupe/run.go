package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crmkit/company-dedupe/internal/cli"
	"github.com/crmkit/company-dedupe/internal/model"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deduplicate one company",
		Long: `Run the deduplication pipeline for a single company.

The result fields are printed for the invoking orchestrator; an error outcome
is still printed before the command exits non-zero.`,
		RunE: runRun,
	}

	cmd.Flags().String("company-id", "", "id of the company to deduplicate (required)")
	cmd.Flags().StringP("output", "o", "table", "output format (table, json)")
	_ = cmd.MarkFlagRequired("company-id")

	_ = viper.BindPFlag("run.company_id", cmd.Flags().Lookup("company-id"))
	_ = viper.BindPFlag("run.output", cmd.Flags().Lookup("output"))

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	companyID := viper.GetString("run.company_id")
	output := viper.GetString("run.output")

	engine, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	result := engine.Run(cmd.Context(), companyID)

	if err := printResult(result, output); err != nil {
		return err
	}

	if result.Outcome == model.OutcomeError {
		return fmt.Errorf("deduplication of company %s failed: %s", companyID, result.Error)
	}
	return nil
}

func printResult(result model.Result, output string) error {
	switch output {
	case "json":
		data, err := json.MarshalIndent(result.Fields(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(data))
	case "table":
		fmt.Println(cli.RenderBox("Deduplication Result", formatFields(result)))
	default:
		return fmt.Errorf("invalid output format: %s", output)
	}
	return nil
}

func formatFields(result model.Result) string {
	fields := result.Fields()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(fields))
	for _, k := range keys {
		value := fields[k]
		if k == "result" {
			value = colorOutcome(result.Outcome)
		}
		lines = append(lines, fmt.Sprintf("%-20s %s", k, value))
	}
	return strings.Join(lines, "\n")
}

func colorOutcome(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeError:
		return cli.FormatError(string(outcome))
	case model.OutcomeAlreadyMerged:
		return cli.FormatWarning(string(outcome))
	default:
		return cli.FormatSuccess(string(outcome))
	}
}
