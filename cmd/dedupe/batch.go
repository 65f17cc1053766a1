package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crmkit/company-dedupe/internal/cli"
	"github.com/crmkit/company-dedupe/internal/model"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Deduplicate a list of companies",
		Long: `Run the deduplication pipeline for every company id in a file, one id per
line. Companies are processed sequentially; records left with remaining
duplicates need another pass.`,
		RunE: runBatch,
	}

	cmd.Flags().StringP("file", "f", "", "file with one company id per line (required)")
	_ = cmd.MarkFlagRequired("file")

	_ = viper.BindPFlag("batch.file", cmd.Flags().Lookup("file"))

	return cmd
}

func runBatch(cmd *cobra.Command, _ []string) error {
	path := viper.GetString("batch.file")

	ids, err := readCompanyIDs(path)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println(cli.FormatWarning("No company ids found in " + path))
		return nil
	}

	engine, cleanup, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.Default(int64(len(ids)), "deduplicating")

	counts := make(map[model.Outcome]int)
	for _, id := range ids {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		result := engine.Run(cmd.Context(), id)
		counts[result.Outcome]++
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Println(cli.RenderBox("Batch Summary", formatCounts(len(ids), counts)))
	return nil
}

func readCompanyIDs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read id file: %w", err)
	}

	return ids, nil
}

func formatCounts(total int, counts map[model.Outcome]int) string {
	lines := []string{fmt.Sprintf("%-35s %d", "companies processed", total)}

	order := []model.Outcome{
		model.OutcomeNoDuplicates,
		model.OutcomeMergedAsPrimary,
		model.OutcomeMergedIntoPrimary,
		model.OutcomeAlreadyMerged,
		model.OutcomeError,
	}
	for _, outcome := range order {
		if n := counts[outcome]; n > 0 {
			lines = append(lines, fmt.Sprintf("%-35s %d", string(outcome), n))
		}
	}

	return strings.Join(lines, "\n")
}
